package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/revyl/liveview/internal/devserver"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewServer("test", devserver.NewClient(srv.URL), "ios")
}

func TestHandleReload(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != devserver.ReloadPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"running","reloads":3,"clients":2,"notified":2}`))
	})

	_, out, err := s.handleReload(context.Background(), nil, ReloadInput{})
	if err != nil {
		t.Fatalf("handleReload() error = %v", err)
	}
	if !out.Success || out.Notified != 2 || out.Reloads != 3 {
		t.Errorf("handleReload() = %+v", out)
	}
}

func TestHandleStatus_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	s := NewServer("test", devserver.NewClient(url), "")

	_, out, err := s.handleStatus(context.Background(), nil, StatusInput{})
	if err != nil {
		t.Fatalf("handleStatus() error = %v", err)
	}
	if out.Success || out.Error == "" {
		t.Errorf("handleStatus() = %+v, want failure with error", out)
	}
	if out.URL != url {
		t.Errorf("URL = %q, want %q", out.URL, url)
	}
}

func TestHandleReadSource(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/big.js":
			_, _ = w.Write([]byte(strings.Repeat("x", maxSourceBytes+10)))
		case r.URL.Path == "/app.js":
			_, _ = w.Write([]byte("platform=" + r.Header.Get(devserver.PlatformHeader)))
		default:
			http.NotFound(w, r)
		}
	})

	tests := []struct {
		name        string
		input       ReadSourceInput
		wantSuccess bool
		wantContent string
		wantTrunc   bool
	}{
		{"default platform", ReadSourceInput{Path: "app.js"}, true, "platform=ios", false},
		{"explicit platform", ReadSourceInput{Path: "app.js", Platform: "android"}, true, "platform=android", false},
		{"missing path", ReadSourceInput{}, false, "", false},
		{"not found", ReadSourceInput{Path: "nope.js"}, false, "", false},
		{"truncated", ReadSourceInput{Path: "big.js"}, true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := s.handleReadSource(context.Background(), nil, tt.input)
			if err != nil {
				t.Fatalf("handleReadSource() error = %v", err)
			}
			if out.Success != tt.wantSuccess {
				t.Fatalf("Success = %v, want %v (%s)", out.Success, tt.wantSuccess, out.Error)
			}
			if tt.wantContent != "" && out.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", out.Content, tt.wantContent)
			}
			if out.Truncated != tt.wantTrunc {
				t.Errorf("Truncated = %v, want %v", out.Truncated, tt.wantTrunc)
			}
			if tt.wantTrunc && len(out.Content) != maxSourceBytes {
				t.Errorf("len(Content) = %d, want %d", len(out.Content), maxSourceBytes)
			}
		})
	}
}

func TestHandleReadSource_TruncatesOnRuneBoundary(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxSourceBytes-1) + "é tail"))
	})

	_, out, err := s.handleReadSource(context.Background(), nil, ReadSourceInput{Path: "wide.js"})
	if err != nil {
		t.Fatalf("handleReadSource() error = %v", err)
	}
	if !out.Truncated {
		t.Fatal("Truncated = false, want true")
	}
	if !utf8.ValidString(out.Content) {
		t.Fatal("Content is not valid UTF-8")
	}
	if len(out.Content) != maxSourceBytes-1 {
		t.Errorf("len(Content) = %d, want %d", len(out.Content), maxSourceBytes-1)
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short", "abc", 10, "abc"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"mid rune", "aé", 2, "a"},
		{"after rune", "aéb", 3, "aé"},
		{"four byte rune", "a😀", 3, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(truncateUTF8([]byte(tt.in), tt.limit)); got != tt.want {
				t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}
