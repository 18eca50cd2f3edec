package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fabler/internal/services"
)

func TestFetchTextStripsHTML(t *testing.T) {
	page := `<!DOCTYPE html><html><head><title>ignored</title><style>body{}</style></head>
<body><nav>menu items</nav><article><h1>The Story</h1><p>First paragraph.</p>
<p>Second &amp; final paragraph.</p></article><script>alert(1)</script></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	text, err := NewClient().FetchText(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "menu items") || strings.Contains(text, "body{}") {
		t.Fatalf("script/nav/style leaked into text: %q", text)
	}
	if !strings.Contains(text, "The Story") || !strings.Contains(text, "Second & final paragraph.") {
		t.Fatalf("content missing from text: %q", text)
	}
	if !strings.Contains(text, "First paragraph.\n\nSecond") {
		t.Fatalf("paragraph break missing: %q", text)
	}
}

func TestFetchTextPlainBodyPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "  plain words  ")
	}))
	defer srv.Close()

	text, err := NewClient().FetchText(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if text != "plain words" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestFetchTextNotFoundIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewClient().FetchText(context.Background(), srv.URL)
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestFetchTextServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient().FetchText(context.Background(), srv.URL)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestStripHTMLSelfClosingSkippedTag(t *testing.T) {
	text := StripHTML(`before <script src="x.js"/> after`)
	if text != "before after" {
		t.Fatalf("unexpected text %q", text)
	}
}
