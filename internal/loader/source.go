package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultFetchPort is the dev server port serving module sources.
	DefaultFetchPort = 8324

	// DefaultFetchTimeout bounds a single remote source fetch.
	DefaultFetchTimeout = 15 * time.Second

	// PlatformHeader carries the target platform on source requests.
	PlatformHeader = "x-platform"
)

// ErrFetchTimeout is matched by errors returned when the dev server cannot
// be reached before the fetch deadline.
var ErrFetchTimeout = errors.New("unable to reach dev server")

// Source resolves module identifiers to script text.
type Source interface {
	// Fetch returns the source of id. found is false when the module has no
	// script source. A non-nil error is fatal to the require.
	Fetch(ctx context.Context, id string) (text string, found bool, err error)
}

// FetchError is returned by HTTPSource when the server could not be reached.
type FetchError struct {
	Host string
	Port int
	ID   string
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("unable to fetch %q: dev server at %s:%d is not reachable, check that it is running and the device can reach it: %v",
		e.ID, e.Host, e.Port, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches ErrFetchTimeout.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchTimeout
}

// HTTPSource fetches module sources from the dev server:
// GET http://{host}:{port}/{id}.js with the x-platform header.
type HTTPSource struct {
	Host     string
	Port     int
	Platform string

	// Timeout is the absolute deadline per fetch. Defaults to DefaultFetchTimeout.
	Timeout time.Duration

	// Client defaults to a client with no timeout; the deadline comes from Timeout.
	Client *http.Client
}

// NewHTTPSource creates an HTTPSource with default timeout.
//
// Parameters:
//   - host: Dev server host
//   - port: Dev server fetch port
//   - platform: Value of the x-platform header
//
// Returns:
//   - *HTTPSource: A new source
func NewHTTPSource(host string, port int, platform string) *HTTPSource {
	return &HTTPSource{
		Host:     host,
		Port:     port,
		Platform: platform,
		Timeout:  DefaultFetchTimeout,
	}
}

// URL returns the request URL for id.
func (s *HTTPSource) URL(id string) string {
	host := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	return "http://" + host + "/" + strings.TrimPrefix(id, "/") + ".js"
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, id string) (string, bool, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(id), nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create source request: %w", err)
	}
	if s.Platform != "" {
		req.Header.Set(PlatformHeader, s.Platform)
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 0}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false, &FetchError{Host: s.Host, Port: s.Port, ID: id, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", false, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, &FetchError{Host: s.Host, Port: s.Port, ID: id, Err: err}
	}
	return string(body), true, nil
}

// FSSource reads bundled module sources from a file system.
type FSSource struct {
	FS fs.FS
}

// Fetch implements Source. Missing or invalid paths are not found.
func (s *FSSource) Fetch(_ context.Context, id string) (string, bool, error) {
	name := path.Clean(strings.TrimPrefix(id, "/")) + ".js"
	if !fs.ValidPath(name) {
		return "", false, nil
	}
	data, err := fs.ReadFile(s.FS, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), true, nil
}

// ChainSource tries each source in order and returns the first match.
type ChainSource []Source

// Fetch implements Source.
func (c ChainSource) Fetch(ctx context.Context, id string) (string, bool, error) {
	for _, src := range c {
		text, found, err := src.Fetch(ctx, id)
		if err != nil {
			return "", false, err
		}
		if found {
			return text, true, nil
		}
	}
	return "", false, nil
}
