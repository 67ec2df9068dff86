package analyzer

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildMultiplierTree(t *testing.T) {
	series := []RawSeries{
		{"__name__": "http_requests_total", "method": "GET", "status": "200", "path": "/a"},
		{"__name__": "http_requests_total", "method": "GET", "status": "500", "path": "/b"},
		{"__name__": "http_requests_total", "method": "POST", "status": "200", "path": "/c"},
	}

	got := BuildMultiplierTree(series)
	want := []LabelBreakdown{
		{Label: "path", UniqueValues: 3, SampleValues: []string{"/a", "/b", "/c"}},
		{Label: "method", UniqueValues: 2, SampleValues: []string{"GET", "POST"}},
		{Label: "status", UniqueValues: 2, SampleValues: []string{"200", "500"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildMultiplierTree mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMultiplierTreeTiesKeepFirstSeenOrder(t *testing.T) {
	series := []RawSeries{
		{"zone": "a"},
		{"app": "x", "zone": "b"},
		{"app": "y"},
	}
	got := BuildMultiplierTree(series)
	if len(got) != 2 || got[0].Label != "zone" || got[1].Label != "app" {
		t.Errorf("BuildMultiplierTree order = %+v, want zone then app", got)
	}
}

func TestBuildMultiplierTreeSamplesAreBounded(t *testing.T) {
	var series []RawSeries
	for i := 0; i < 12; i++ {
		series = append(series, RawSeries{"pod": fmt.Sprintf("pod-%02d", i)})
	}
	got := BuildMultiplierTree(series)
	if got[0].UniqueValues != 12 {
		t.Errorf("UniqueValues = %d, want 12", got[0].UniqueValues)
	}
	want := []string{"pod-00", "pod-01", "pod-02", "pod-03", "pod-04"}
	if diff := cmp.Diff(want, got[0].SampleValues); diff != "" {
		t.Errorf("SampleValues mismatch (-want +got):\n%s", diff)
	}
}

func TestNewMetricTreeEmpty(t *testing.T) {
	tree := NewMetricTree("up", 0, nil)
	if len(tree.Labels) != 0 {
		t.Errorf("Labels = %v, want empty", tree.Labels)
	}
	if tree.Product != 1 || tree.Overflow {
		t.Errorf("Product = %d, Overflow = %v; want 1, false", tree.Product, tree.Overflow)
	}
	if _, ok := tree.Density(); !ok {
		t.Error("Density() should be defined for product 1 and zero series")
	}
}

func TestNewMetricTreeProduct(t *testing.T) {
	series := []RawSeries{
		{"__name__": "m", "a": "1", "b": "x"},
		{"__name__": "m", "a": "2", "b": "y"},
		{"__name__": "m", "a": "3", "b": "x"},
	}
	tree := NewMetricTree("m", 3, series)

	product := uint64(1)
	for _, l := range tree.Labels {
		if l.UniqueValues < 1 {
			t.Errorf("label %s has %d values, want >= 1", l.Label, l.UniqueValues)
		}
		product *= uint64(l.UniqueValues)
	}
	if tree.Product != product || tree.Product != 6 {
		t.Errorf("Product = %d, want %d", tree.Product, product)
	}

	density, ok := tree.Density()
	if !ok || density != 50 {
		t.Errorf("Density() = %d, %v; want 50, true", density, ok)
	}
}

func TestLabelProductSaturates(t *testing.T) {
	labels := []LabelBreakdown{
		{Label: "a", UniqueValues: math.MaxInt32},
		{Label: "b", UniqueValues: math.MaxInt32},
		{Label: "c", UniqueValues: math.MaxInt32},
	}
	product, overflow := labelProduct(labels)
	if !overflow || product != math.MaxUint64 {
		t.Errorf("labelProduct() = %d, %v; want MaxUint64, true", product, overflow)
	}

	tree := &MetricTree{Product: product, Overflow: overflow, TotalSeries: 10}
	if _, ok := tree.Density(); ok {
		t.Error("Density() should be undefined on overflow")
	}
}

func TestDensityHiddenWhenProductMatches(t *testing.T) {
	tree := &MetricTree{TotalSeries: 6, Product: 6}
	if _, ok := tree.Density(); ok {
		t.Error("Density() should be hidden when product equals series count")
	}
}
