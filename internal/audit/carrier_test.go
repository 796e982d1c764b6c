package audit

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &kafka.Message{}
	c := carrierFor(msg)

	if got := c.Get("traceparent"); got != "" {
		t.Errorf("expected empty value for missing key, got %q", got)
	}

	c.Set("traceparent", "00-abc-def-01")
	c.Set("tracestate", "vendor=1")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("unexpected traceparent: %q", got)
	}

	c.Set("traceparent", "00-abc-def-02")
	if got := c.Get("traceparent"); got != "00-abc-def-02" {
		t.Errorf("expected overwritten value, got %q", got)
	}
	if len(msg.Headers) != 2 {
		t.Errorf("expected 2 headers after overwrite, got %d", len(msg.Headers))
	}

	keys := c.Keys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}
