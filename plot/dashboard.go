package plot

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/rodrigo-brito/stockwave/tools/log"
)

var (
	//go:embed assets
	staticFiles embed.FS
)

// Dashboard serves the single page that queries /analyze and displays the
// rendered artifacts and similarity graph of each symbol.
type Dashboard struct {
	debug         bool
	logger        log.Logger
	universes     []string
	intervals     []string
	scriptContent string
	indexHTML     *template.Template
}

type DashboardOption func(*Dashboard)

// WithDebug disables script minification.
func WithDebug() DashboardOption {
	return func(d *Dashboard) {
		d.debug = true
	}
}

func WithDashboardLogger(logger log.Logger) DashboardOption {
	return func(d *Dashboard) {
		d.logger = logger
	}
}

// WithChoices sets the universes and intervals offered by the page.
func WithChoices(universes, intervals []string) DashboardOption {
	return func(d *Dashboard) {
		d.universes = universes
		d.intervals = intervals
	}
}

func NewDashboard(options ...DashboardOption) (*Dashboard, error) {
	dashboard := &Dashboard{}
	for _, option := range options {
		option(dashboard)
	}
	dashboard.logger = log.OrDiscard(dashboard.logger)

	script, err := staticFiles.ReadFile("assets/dashboard.js")
	if err != nil {
		return nil, err
	}

	dashboard.indexHTML, err = template.ParseFS(staticFiles, "assets/dashboard.html")
	if err != nil {
		return nil, err
	}

	transpiled := api.Transform(string(script), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ES2015,
		MinifySyntax:      !dashboard.debug,
		MinifyIdentifiers: !dashboard.debug,
		MinifyWhitespace:  !dashboard.debug,
	})
	if len(transpiled.Errors) > 0 {
		return nil, fmt.Errorf("dashboard script failed with: %v", transpiled.Errors)
	}
	dashboard.scriptContent = string(transpiled.Code)

	return dashboard, nil
}

func (d *Dashboard) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "text/html")
	err := d.indexHTML.Execute(w, map[string]interface{}{
		"symbols":   r.URL.Query().Get("symbols"),
		"universes": d.universes,
		"intervals": d.intervals,
	})
	if err != nil {
		d.logger.Error(err)
	}
}

func (d *Dashboard) HandleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-type", "application/javascript")
	fmt.Fprint(w, d.scriptContent)
}

// Assets serves the remaining embedded files under /assets/.
func (d *Dashboard) Assets() http.Handler {
	sub, err := fs.Sub(staticFiles, "assets")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
}
