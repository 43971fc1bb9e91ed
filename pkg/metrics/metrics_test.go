package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCartMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartMetrics(reg)
	m.Observe("add_item", 20*time.Millisecond, nil)
	m.Observe("add_item", 10*time.Millisecond, errors.New("boom"))
	m.Observe("", time.Millisecond, nil)
	m.AddMergedLines(3)
	m.AddMergedLines(-1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	labels := map[string]string{"operation": "add_item", "outcome": OutcomeSuccess}
	if got, err := fetchCounterValue(mfs, "cart_operations_total", labels); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	labels["outcome"] = OutcomeFailure
	if got, err := fetchCounterValue(mfs, "cart_operations_total", labels); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if _, err := fetchCounterValue(mfs, "cart_operations_total", map[string]string{"operation": "unknown", "outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("empty operation should be labelled unknown: %v", err)
	}

	if got, err := fetchHistogramCount(mfs, "cart_operation_duration_seconds", map[string]string{"operation": "add_item"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 observations, got %d", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_merged_lines_total", nil); err != nil {
		t.Fatalf("fetch merged: %v", err)
	} else if got != 3 {
		t.Fatalf("expected merged=3, got %f", got)
	}
}

func TestHTTPMetricsObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.ObserveRequest("/api/v1/cart", "GET", 200, 5*time.Millisecond)
	m.ObserveRequest("/api/v1/cart", "GET", 200, 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	got, err := fetchCounterValue(mfs, "http_requests_total", map[string]string{"route": "/api/v1/cart", "method": "GET", "status": "200"})
	if err != nil {
		t.Fatalf("fetch requests: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected 2 requests, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var cart *CartMetrics
	cart.Observe("add_item", time.Second, nil)
	cart.AddMergedLines(1)
	NewCartMetrics(nil).Observe("add_item", time.Second, nil)

	var httpMetrics *HTTPMetrics
	httpMetrics.ObserveRequest("/", "GET", 200, time.Second)
	NewHTTPMetrics(nil).ObserveRequest("/", "GET", 200, time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramCount(mfs []*dto.MetricFamily, name string, labels map[string]string) (uint64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleCount(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == name && pair.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
