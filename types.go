package stockwave

import (
	"github.com/rodrigo-brito/stockwave/indicator"
	"github.com/rodrigo-brito/stockwave/model"
	"github.com/rodrigo-brito/stockwave/similarity"
)

type (
	Candle          = model.Candle
	PriceSeries     = model.PriceSeries
	IndicatorSet    = indicator.Set
	IndicatorParams = indicator.Params
	Node            = similarity.Node
	Link            = similarity.Link
)
