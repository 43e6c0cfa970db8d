package loader

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"testing/fstest"
	"time"
)

func serverSource(t *testing.T, srv *httptest.Server) *HTTPSource {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort(): %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return NewHTTPSource(host, port, "ios")
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(PlatformHeader); got != "ios" {
			t.Errorf("%s header = %q, want ios", PlatformHeader, got)
		}
		switch r.URL.Path {
		case "/ui/win.js":
			_, _ = w.Write([]byte("exports.win = 1;"))
		case "/broken.js":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := serverSource(t, srv)

	text, found, err := src.Fetch(context.Background(), "/ui/win")
	if err != nil || !found {
		t.Fatalf("Fetch(/ui/win) = found %v, err %v", found, err)
	}
	if text != "exports.win = 1;" {
		t.Fatalf("text = %q", text)
	}

	for _, id := range []string{"missing", "broken"} {
		_, found, err = src.Fetch(context.Background(), id)
		if err != nil || found {
			t.Fatalf("Fetch(%s) = found %v, err %v, want not found", id, found, err)
		}
	}
}

func TestHTTPSource_DeadlineEnforced(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	src := serverSource(t, srv)
	src.Timeout = 100 * time.Millisecond

	start := time.Now()
	_, _, err := src.Fetch(context.Background(), "app")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrFetchTimeout) {
		t.Fatalf("err = %v, want ErrFetchTimeout", err)
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Port != src.Port || fetchErr.Host != src.Host {
		t.Fatalf("error should name host and port, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("fetch took %v, want close to the 100ms deadline", elapsed)
	}
}

func TestHTTPSource_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen(): %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	src := NewHTTPSource("127.0.0.1", port, "android")
	_, _, err = src.Fetch(context.Background(), "app")
	if !errors.Is(err, ErrFetchTimeout) {
		t.Fatalf("err = %v, want ErrFetchTimeout", err)
	}
}

func TestHTTPSource_URL(t *testing.T) {
	src := NewHTTPSource("10.0.2.2", DefaultFetchPort, "android")
	if got, want := src.URL("/ui/app"), "http://10.0.2.2:8324/ui/app.js"; got != want {
		t.Fatalf("URL() = %q, want %q", got, want)
	}
}

func TestFSSource(t *testing.T) {
	src := &FSSource{FS: fstest.MapFS{
		"app.js":      {Data: []byte("exports.a = 1;")},
		"ui/index.js": {Data: []byte("exports.ui = 1;")},
	}}

	tests := []struct {
		id    string
		found bool
	}{
		{id: "app", found: true},
		{id: "/app", found: true},
		{id: "ui/index", found: true},
		{id: "ui", found: false},
		{id: "../escape", found: false},
	}
	for _, tt := range tests {
		_, found, err := src.Fetch(context.Background(), tt.id)
		if err != nil {
			t.Fatalf("Fetch(%q): %v", tt.id, err)
		}
		if found != tt.found {
			t.Errorf("Fetch(%q) found = %v, want %v", tt.id, found, tt.found)
		}
	}
}

func TestChainSource(t *testing.T) {
	first := newMapSource(map[string]string{"a": "first"})
	second := newMapSource(map[string]string{"a": "second", "b": "second-b"})
	chain := ChainSource{first, second}

	text, found, err := chain.Fetch(context.Background(), "a")
	if err != nil || !found || text != "first" {
		t.Fatalf("Fetch(a) = %q, %v, %v", text, found, err)
	}
	text, found, err = chain.Fetch(context.Background(), "b")
	if err != nil || !found || text != "second-b" {
		t.Fatalf("Fetch(b) = %q, %v, %v", text, found, err)
	}
	if _, found, _ = chain.Fetch(context.Background(), "c"); found {
		t.Fatal("Fetch(c) should not be found")
	}
}
