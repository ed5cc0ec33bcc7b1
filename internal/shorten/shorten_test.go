package shorten

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestShortenOK(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		_, _ = w.Write([]byte("https://tiny.example/abc\n"))
	}))
	defer srv.Close()

	short, err := New(srv.URL, time.Second).Shorten(context.Background(), "http://host/form/x1?a=b&c=d")
	if err != nil {
		t.Fatalf("Shorten: %v", err)
	}
	if short != "https://tiny.example/abc" {
		t.Fatalf("short = %q", short)
	}
	if gotURL != "http://host/form/x1?a=b&c=d" {
		t.Fatalf("long link not escaped intact: %q", gotURL)
	}
}

func TestShortenFailures(t *testing.T) {
	status := http.StatusInternalServerError
	body := "boom"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second)

	if _, err := c.Shorten(context.Background(), "http://x"); err == nil {
		t.Fatal("non-200 should fail")
	}

	status, body = http.StatusOK, "  "
	if _, err := c.Shorten(context.Background(), "http://x"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Shorten(ctx, "http://x"); err == nil {
		t.Fatal("cancelled context should fail")
	}
}
