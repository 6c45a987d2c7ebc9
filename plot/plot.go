// Package plot renders analysis artifacts as PNG images and serves the
// dashboard that browses them.
package plot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/rodrigo-brito/stockwave/cepstrum"
	"github.com/rodrigo-brito/stockwave/model"
	"github.com/rodrigo-brito/stockwave/service"
	"github.com/rodrigo-brito/stockwave/spectral"
	"github.com/rodrigo-brito/stockwave/storage"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

// Kind identifies one of the rendered images of a symbol.
type Kind string

const (
	KindTimeSeries    Kind = "time_series"
	KindSpectrogram   Kind = "spectrogram"
	KindMFCC          Kind = "mfccs"
	KindTimeFrequency Kind = "time_frequency"
)

// Kinds lists every artifact kind in rendering order.
var Kinds = []Kind{KindTimeSeries, KindSpectrogram, KindMFCC, KindTimeFrequency}

const timestampLayout = "20060102150405"

var ErrNothingToRender = errors.New("nothing to render")

// Input carries everything the renderer draws for one symbol. Params
// describes the request (interval, period, section) so equivalent requests
// can share artifacts.
type Input struct {
	Symbol        string
	Params        string
	Prices        model.PriceSeries
	Spectrogram   *spectral.Spectrogram
	Features      *cepstrum.Features
	TimeFrequency *spectral.Spectrogram
	Multiplier    float64
}

// Artifacts maps each kind to the stored artifact name.
type Artifacts map[Kind]string

// Path returns the URL path of a kind, or empty when it was not rendered.
func (a Artifacts) Path(kind Kind) string {
	name, ok := a[kind]
	if !ok {
		return ""
	}
	return "/images/" + name
}

type Renderer struct {
	store  service.ArtifactStore
	logger log.Logger
	width  int
	height int
	now    func() time.Time
}

type Option func(*Renderer)

// WithSize sets the image size in pixels.
func WithSize(width, height int) Option {
	return func(r *Renderer) {
		r.width = width
		r.height = height
	}
}

func WithLogger(logger log.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithClock replaces time.Now for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

func NewRenderer(store service.ArtifactStore, options ...Option) *Renderer {
	r := &Renderer{
		store:  store,
		width:  1000,
		height: 400,
		now:    time.Now,
	}
	for _, option := range options {
		option(r)
	}
	if r.width < 64 {
		r.width = 64
	}
	if r.height < 64 {
		r.height = 64
	}
	r.logger = log.OrDiscard(r.logger)
	return r
}

// Name builds the artifact file name of a kind.
func Name(symbol string, kind Kind, multiplier float64, at time.Time) string {
	stamp := at.Format(timestampLayout)
	if kind == KindTimeFrequency {
		return fmt.Sprintf("%s_%s_x%s_%s.png", symbol, kind, formatMultiplier(multiplier), stamp)
	}
	return fmt.Sprintf("%s_%s_%s.png", symbol, kind, stamp)
}

func formatMultiplier(multiplier float64) string {
	return strconv.FormatFloat(multiplier, 'f', -1, 64)
}

func (r *Renderer) params(in Input, kind Kind) string {
	if kind == KindTimeFrequency {
		return in.Params + ";x=" + formatMultiplier(in.Multiplier)
	}
	return in.Params
}

// Render draws every available kind of in and stores it. Unless refresh is
// set, an artifact already stored for the same symbol, kind and params is
// reused instead of drawing a new one.
func (r *Renderer) Render(ctx context.Context, in Input, refresh bool) (Artifacts, error) {
	images := map[Kind]func() image.Image{}
	if len(in.Prices) > 0 {
		images[KindTimeSeries] = func() image.Image {
			return lineChart(in.Prices, r.width, r.height)
		}
	}
	if in.Spectrogram != nil {
		images[KindSpectrogram] = func() image.Image {
			return heatmap(in.Spectrogram.Magnitudes, r.width, r.height)
		}
	}
	if in.Features != nil {
		images[KindMFCC] = func() image.Image {
			return heatmap(in.Features.Coefficients, r.width, r.height*3/2)
		}
	}
	if in.TimeFrequency != nil {
		images[KindTimeFrequency] = func() image.Image {
			return heatmap(in.TimeFrequency.Magnitudes, r.width, r.height)
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%s: %w", in.Symbol, ErrNothingToRender)
	}

	created := r.now().UTC()
	out := make(Artifacts, len(images))
	for _, kind := range Kinds {
		draw, ok := images[kind]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		params := r.params(in, kind)
		if !refresh {
			cached, err := r.store.Latest(ctx, in.Symbol, string(kind), params)
			switch {
			case err == nil:
				out[kind] = cached.Name
				continue
			case !errors.Is(err, storage.ErrNotFound):
				return nil, err
			}
		}

		data, err := encode(draw())
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", in.Symbol, kind, err)
		}

		artifact := service.Artifact{
			Name:      Name(in.Symbol, kind, in.Multiplier, created),
			Symbol:    in.Symbol,
			Kind:      string(kind),
			Params:    params,
			CreatedAt: created,
			Data:      data,
		}
		if err := r.store.Save(ctx, artifact); err != nil {
			return nil, err
		}
		out[kind] = artifact.Name

		r.logger.WithFields(log.Fields{
			"symbol": in.Symbol,
			"kind":   kind,
			"name":   artifact.Name,
			"bytes":  len(data),
		}).Debug("artifact rendered")
	}
	return out, nil
}
