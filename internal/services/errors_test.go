package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("status 503")
	err := Wrap(ErrTransient, "story", "generate", "upstream unavailable", cause)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to survive wrapping, got %v", err)
	}
	if !strings.Contains(err.Error(), "story: generate") {
		t.Fatalf("expected stage detail in message, got %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "ingest", "fetch", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("nil marker should default to transient, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Wrap(ErrTransient, "s", "op", "", nil)) {
		t.Fatal("transient errors must be retryable")
	}
	if Retryable(Wrap(ErrPermanent, "s", "op", "", nil)) {
		t.Fatal("permanent errors must not be retryable")
	}
	if Retryable(nil) {
		t.Fatal("nil error must not be retryable")
	}
}

func TestDetailsClassification(t *testing.T) {
	cases := []struct {
		marker error
		kind   string
	}{
		{ErrTransient, "transient"},
		{ErrPermanent, "permanent"},
		{ErrResource, "resource"},
		{ErrConfiguration, "configuration"},
		{ErrNotFound, "not_found"},
	}
	for _, tc := range cases {
		d := Details(Wrap(tc.marker, "stage", "op", "msg", nil))
		if d.Kind != tc.kind {
			t.Errorf("marker %v: expected kind %q, got %q", tc.marker, tc.kind, d.Kind)
		}
	}
	if d := Details(errors.New("plain")); d.Kind != "unknown" {
		t.Errorf("unwrapped error should classify as unknown, got %q", d.Kind)
	}
}
