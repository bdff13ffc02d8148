package http

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/odorscope/odorscope/internal/analysis"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

const (
	fieldComponent     = "component"
	fieldConcentration = "conc:"
	actionAnalyze      = "analyze"
)

type dashboard struct {
	tmpl *template.Template
}

func newDashboard() *dashboard {
	tmpl := template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
		"prob":    func(p float64) string { return strconv.FormatFloat(p, 'f', 4, 64) },
		"percent": func(p float64) string { return strconv.FormatFloat(p*100, 'f', 1, 64) },
		"inc":     func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/dashboard.html"))
	return &dashboard{tmpl: tmpl}
}

type bar struct {
	Label       string
	Probability float64
	Width       float64
}

type dashboardView struct {
	Title      string
	Components []string
	Selected   map[string]bool
	Inputs     []input
	TopK       int
	Result     *analysis.Result
	Bars       []bar
	Error      string
	Info       string
}

type input struct {
	Name  string
	Value string
}

func (a *API) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	view := dashboardView{
		Title:      a.title,
		Components: a.analyzer.Features().Sorted(),
		Selected:   map[string]bool{},
		TopK:       a.analyzer.TopK(),
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			view.Error = "invalid form submission"
			break
		}
		a.submit(r, &view)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if len(view.Inputs) == 0 && view.Error == "" {
		view.Info = "Select one or more components to enter concentrations."
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.dashboard.tmpl.Execute(w, view); err != nil {
		log.Printf("render dashboard: %v", err)
	}
}

// submit fills view from the posted form. Selecting components only
// re-renders the inputs; the analyze action also runs the prediction.
func (a *API) submit(r *http.Request, view *dashboardView) {
	sel := analysis.Selection{}
	var parseErr error

	for _, name := range r.PostForm[fieldComponent] {
		if view.Selected[name] {
			continue
		}
		view.Selected[name] = true

		raw := strings.TrimSpace(r.PostForm.Get(fieldConcentration + name))
		view.Inputs = append(view.Inputs, input{Name: name, Value: raw})

		v := 0.0
		if raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil && parseErr == nil {
				parseErr = fmt.Errorf("concentration for %q is not a number", name)
			}
			v = parsed
		}
		sel[name] = v
	}

	for i := range view.Inputs {
		if view.Inputs[i].Value == "" {
			view.Inputs[i].Value = "0.000000"
		}
	}

	if r.PostForm.Get("action") != actionAnalyze {
		return
	}
	if parseErr != nil {
		view.Error = parseErr.Error()
		return
	}

	res, err := a.run(sel, "dashboard")
	if err != nil {
		view.Error = err.Error()
		return
	}
	view.Result = res
	view.Bars = bars(res.Top)
}

// bars scales the top entries against the largest one.
func bars(top analysis.Ranked) []bar {
	out := make([]bar, 0, len(top))
	peak := top.Best().Probability
	for _, s := range top {
		width := 0.0
		if peak > 0 && s.Probability > 0 {
			width = s.Probability / peak * 100
		}
		out = append(out, bar{Label: s.Label, Probability: s.Probability, Width: width})
	}
	return out
}
