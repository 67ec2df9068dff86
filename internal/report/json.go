package report

import (
	"encoding/json"
	"io"

	"github.com/illenko/blacklight/internal/analyzer"
)

// JSONFormatter renders values as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) Format(w io.Writer, r *Report) error {
	return f.encode(w, r)
}

func (f *JSONFormatter) FormatTree(w io.Writer, t *analyzer.MetricTree) error {
	return f.encode(w, t)
}

func (f *JSONFormatter) FormatImpact(w io.Writer, impact analyzer.SimulationImpact) error {
	return f.encode(w, impact)
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
