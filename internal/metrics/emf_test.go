package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// capture points the sink at a buffer for the duration of the test.
func capture(t *testing.T, ns string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Configure(ns, &buf)
	t.Cleanup(func() { Configure("", nil) })
	return &buf
}

func TestConfigure_Namespace(t *testing.T) {
	capture(t, "Studio")
	if r := New(); r.namespace != "Studio" {
		t.Errorf("expected namespace Studio, got %s", r.namespace)
	}

	Configure("", nil)
	if r := New(); r.namespace != DefaultNamespace {
		t.Errorf("expected default namespace, got %s", r.namespace)
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	buf := capture(t, "BgStudio")

	New().
		Dimension("Operation", "composite").
		Metric("CompositeMs", 1234.5, UnitMilliseconds).
		Metric("ExportBytes", 2048, UnitBytes).
		Property("sessionId", "abc-123").
		Flush()

	output := buf.String()
	if strings.Count(output, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", output)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, output)
	}

	awsMap, ok := doc["_aws"].(map[string]interface{})
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if _, ok := awsMap["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}
	cwArr, ok := awsMap["CloudWatchMetrics"].([]interface{})
	if !ok || len(cwArr) == 0 {
		t.Fatal("CloudWatchMetrics should be a non-empty array")
	}
	cw := cwArr[0].(map[string]interface{})
	if cw["Namespace"] != "BgStudio" {
		t.Errorf("expected namespace BgStudio, got %v", cw["Namespace"])
	}

	if doc["Operation"] != "composite" {
		t.Errorf("expected Operation=composite, got %v", doc["Operation"])
	}
	if doc["CompositeMs"] != 1234.5 {
		t.Errorf("expected CompositeMs=1234.5, got %v", doc["CompositeMs"])
	}
	if doc["ExportBytes"] != float64(2048) {
		t.Errorf("expected ExportBytes=2048, got %v", doc["ExportBytes"])
	}
	if doc["sessionId"] != "abc-123" {
		t.Errorf("expected sessionId=abc-123, got %v", doc["sessionId"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	buf := capture(t, "Test")

	New().Dimension("Operation", "noop").Flush()

	if buf.Len() != 0 {
		t.Errorf("expected no output for empty recorder, got: %s", buf.String())
	}
}

func TestRecorder_DisabledSinkWritesNothing(t *testing.T) {
	buf := capture(t, "Test")
	Configure("Test", nil)

	New().Count("Calls").Flush()

	if buf.Len() != 0 {
		t.Errorf("expected nothing after disabling sink, got: %s", buf.String())
	}
}

func TestRecorder_Count(t *testing.T) {
	rec := New()
	rec.Count("Errors")

	if v, ok := rec.values["Errors"]; !ok || v != float64(1) {
		t.Errorf("expected Errors=1, got %v", v)
	}
	if m, ok := rec.metrics["Errors"]; !ok || m.Unit != UnitCount {
		t.Errorf("expected unit Count, got %v", m.Unit)
	}
}

func TestRecorder_Chaining(t *testing.T) {
	rec := New().
		Dimension("Op", "test").
		Metric("Duration", 100, UnitMilliseconds).
		Count("Calls").
		Property("id", "xyz")

	if rec.dimensions["Op"] != "test" {
		t.Error("chaining Dimension failed")
	}
	if rec.values["Duration"] != float64(100) {
		t.Error("chaining Metric failed")
	}
	if rec.values["Calls"] != float64(1) {
		t.Error("chaining Count failed")
	}
	if rec.properties["id"] != "xyz" {
		t.Error("chaining Property failed")
	}
}
