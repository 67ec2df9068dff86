package relabel

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDropMetric(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		metric string
		want   string
	}{
		{
			name:   "operator",
			format: FormatOperator,
			metric: "http_requests_total",
			want:   "- sourceLabels: [__name__]\n  regex: \"http_requests_total\"\n  action: drop",
		},
		{
			name:   "prometheus",
			format: FormatPrometheus,
			metric: "http_requests_total",
			want:   "- source_labels: [__name__]\n  regex: \"http_requests_total\"\n  action: drop",
		},
		{
			name:   "dotted name is escaped",
			format: FormatPrometheus,
			metric: "app.requests",
			want:   "- source_labels: [__name__]\n  regex: \"app\\\\.requests\"\n  action: drop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DropMetric(tt.format, tt.metric); got != tt.want {
				t.Errorf("DropMetric() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDropLabel(t *testing.T) {
	want := "- action: labeldrop\n  regex: \"path\""
	for _, f := range []Format{FormatOperator, FormatPrometheus} {
		if got := DropLabel(f, "path"); got != want {
			t.Errorf("DropLabel(%s) = %q, want %q", f, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatOperator {
		t.Errorf("ParseFormat(\"\") = %q, %v; want operator", f, err)
	}
	if f, err := ParseFormat("prometheus"); err != nil || f != FormatPrometheus {
		t.Errorf("ParseFormat(prometheus) = %q, %v", f, err)
	}
	if _, err := ParseFormat("helm"); err == nil {
		t.Error("ParseFormat(helm) expected error")
	}
}

func TestPreviewDropMetric(t *testing.T) {
	series := map[string]string{"__name__": "http_requests_total", "path": "/a"}

	for _, f := range []Format{FormatOperator, FormatPrometheus} {
		res, err := Preview(DropMetric(f, "http_requests_total"), series)
		if err != nil {
			t.Fatalf("Preview(%s) error: %v", f, err)
		}
		if res.Keep {
			t.Errorf("Preview(%s).Keep = true, want false", f)
		}
	}

	res, err := Preview(DropMetric(FormatOperator, "http_requests"), series)
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	if !res.Keep {
		t.Error("regex must be anchored: a prefix must not drop the series")
	}
}

func TestPreviewDropLabel(t *testing.T) {
	series := map[string]string{"__name__": "http_requests_total", "path": "/a", "status": "200"}

	res, err := Preview(DropLabel(FormatOperator, "path"), series)
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	want := map[string]string{"__name__": "http_requests_total", "status": "200"}
	if !res.Keep {
		t.Fatal("Keep = false, want true")
	}
	if diff := cmp.Diff(want, res.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestPreviewRewritingActions(t *testing.T) {
	series := map[string]string{"__name__": "http_requests_total", "path": "/users/42", "pod": "api-7f9c"}

	tests := []struct {
		name    string
		snippet string
		want    map[string]string
	}{
		{
			name:    "replace",
			snippet: "- sourceLabels: [path]\n  regex: \"/users/.*\"\n  targetLabel: path\n  replacement: /users/:id\n  action: replace",
			want:    map[string]string{"__name__": "http_requests_total", "path": "/users/:id", "pod": "api-7f9c"},
		},
		{
			name:    "labelmap",
			snippet: "- regex: \"pod\"\n  replacement: kubernetes_pod\n  action: labelmap",
			want:    map[string]string{"__name__": "http_requests_total", "path": "/users/42", "pod": "api-7f9c", "kubernetes_pod": "api-7f9c"},
		},
		{
			name:    "chained",
			snippet: "- source_labels: [pod]\n  regex: \"(api)-.*\"\n  target_label: app\n  action: replace\n- action: labeldrop\n  regex: pod",
			want:    map[string]string{"__name__": "http_requests_total", "path": "/users/42", "app": "api"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Preview(tt.snippet, series)
			if err != nil {
				t.Fatalf("Preview() error: %v", err)
			}
			if !res.Keep {
				t.Fatal("Keep = false, want true")
			}
			if diff := cmp.Diff(tt.want, res.Labels); diff != "" {
				t.Errorf("labels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPreviewDropWithoutSourceLabels(t *testing.T) {
	res, err := Preview("- action: drop\n  regex: x", map[string]string{"a": "1"})
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	if !res.Keep {
		t.Error("empty source value does not match x: Keep = false, want true")
	}
}

func TestPreviewRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"garbage":        "- : [",
		"null rule":      "- ",
		"unknown action": "- source_labels: [a]\n  action: explode",
		"no target":      "- source_labels: [a]\n  action: replace",
		"hashmod":        "- source_labels: [a]\n  target_label: shard\n  action: hashmod",
	}
	for name, snippet := range tests {
		if _, err := Preview(snippet, map[string]string{"a": "1"}); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
