package scenes

import (
	"strings"
	"testing"
	"time"
)

func TestSplitOrderAndIdempotence(t *testing.T) {
	units := Split("A\n\nB\n\nC")
	want := []string{"A", "B", "C"}
	if len(units) != len(want) {
		t.Fatalf("expected %d units, got %d", len(want), len(units))
	}
	for i := range want {
		if units[i] != want[i] {
			t.Fatalf("unit %d: expected %q, got %q", i, want[i], units[i])
		}
	}

	again := Split(Join(units))
	if len(again) != len(units) {
		t.Fatalf("re-split changed unit count: %d vs %d", len(again), len(units))
	}
	for i := range units {
		if again[i] != units[i] {
			t.Fatalf("re-split changed unit %d: %q vs %q", i, again[i], units[i])
		}
	}
}

func TestSplitDropsEmptyBlocks(t *testing.T) {
	units := Split("\n\nA\n\n\n\n  \n\nB\n\n")
	if len(units) != 2 || units[0] != "A" || units[1] != "B" {
		t.Fatalf("unexpected units %v", units)
	}
}

func TestSplitHandlesWindowsLineEndings(t *testing.T) {
	units := Split("A\r\n\r\nB")
	if len(units) != 2 || units[0] != "A" || units[1] != "B" {
		t.Fatalf("unexpected units %v", units)
	}
}

func TestAllocateCaptionsEqualContiguousSlices(t *testing.T) {
	captions := AllocateCaptions(90*time.Second, []string{"A", "B", "C"})
	if len(captions) != 3 {
		t.Fatalf("expected 3 captions, got %d", len(captions))
	}
	for i, caption := range captions {
		if got := caption.End - caption.Start; got != 30*time.Second {
			t.Errorf("caption %d spans %s, expected 30s", i, got)
		}
		if i > 0 && caption.Start != captions[i-1].End {
			t.Errorf("caption %d is not contiguous: starts %s after previous end %s", i, caption.Start, captions[i-1].End)
		}
	}
	if captions[2].End != 90*time.Second {
		t.Fatalf("last caption must end at the total duration, got %s", captions[2].End)
	}
}

func TestAllocateCaptionsAbsorbsRemainderInLast(t *testing.T) {
	captions := AllocateCaptions(10*time.Second, []string{"A", "B", "C"})
	if captions[2].End != 10*time.Second {
		t.Fatalf("last caption must absorb rounding, ends at %s", captions[2].End)
	}
}

func TestAllocateCaptionsEmptyInputs(t *testing.T) {
	if got := AllocateCaptions(time.Minute, nil); got != nil {
		t.Fatalf("no scenes should yield no captions, got %v", got)
	}
	if got := AllocateCaptions(0, []string{"A"}); got != nil {
		t.Fatalf("zero duration should yield no captions, got %v", got)
	}
}

func TestFormatSRT(t *testing.T) {
	captions := AllocateCaptions(4*time.Second, []string{"Hello", "World"})
	doc := FormatSRT(captions)

	if !strings.Contains(doc, "1\n00:00:00,000 --> 00:00:02,000\nHello\n") {
		t.Fatalf("first entry malformed:\n%s", doc)
	}
	if !strings.Contains(doc, "2\n00:00:02,000 --> 00:00:04,000\nWorld\n") {
		t.Fatalf("second entry malformed:\n%s", doc)
	}
}
