package devserver

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/tidwall/sjson"
)

// PlatformHeader selects a platform-specific override directory.
const PlatformHeader = "x-platform"

// Control endpoints.
const (
	ReloadPath = "/__liveview/reload"
	EventsPath = "/__liveview/events"
	StatusPath = "/__liveview/status"
)

// routes builds the HTTP handler. Sources are served from the router's
// NotFound handler because httprouter does not allow a root catch-all next
// to the control routes.
func (s *Server) routes() http.Handler {
	router := httprouter.New()
	router.HandleMethodNotAllowed = false

	router.POST(ReloadPath, s.handleReload)
	router.GET(EventsPath, s.handleEvents)
	router.GET(StatusPath, s.handleStatus)
	router.NotFound = http.HandlerFunc(s.handleSource)

	return router
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n := s.Reload()
	frame, _ := statusFrame(s.Status(), s.Reloads(), s.Clients())
	frame, _ = sjson.SetBytes(frame, "notified", n)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(frame)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sockets.ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	frame, _ := statusFrame(s.Status(), s.Reloads(), s.Clients())
	_, _ = w.Write(frame)
}

// statusFrame describes the server for the status and reload endpoints.
func statusFrame(status Status, reloads, clients int) ([]byte, error) {
	frame, err := sjson.SetBytes(nil, "status", string(status))
	if err != nil {
		return nil, err
	}
	if frame, err = sjson.SetBytes(frame, "reloads", reloads); err != nil {
		return nil, err
	}
	return sjson.SetBytes(frame, "clients", clients)
}

// handleSource serves <resources>/<platform>/<path> when it exists,
// otherwise <resources>/<path>.
func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	platform := r.Header.Get(PlatformHeader)

	data, served, err := readSource(os.DirFS(s.opts.Resources), rel, platform)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("source not found", "path", rel, "platform", platform)
			http.NotFound(w, r)
			return
		}
		s.logger.Error("failed to read source", "path", rel, "err", err)
		http.Error(w, "failed to read source", http.StatusInternalServerError)
		return
	}

	s.logger.Debug("serving source", "path", served, "platform", platform)

	ctype := mime.TypeByExtension(path.Ext(served))
	if path.Ext(served) == ".js" || ctype == "" {
		ctype = "application/javascript; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}

// readSource reads rel from fsys, preferring the platform override.
//
// Parameters:
//   - fsys: The resources tree
//   - rel: Slash-separated path relative to the tree
//   - platform: Override directory name, or ""
//
// Returns:
//   - []byte: File contents
//   - string: The path that was served
//   - error: fs.ErrNotExist when neither candidate exists
func readSource(fsys fs.FS, rel, platform string) ([]byte, string, error) {
	if rel == "" || !fs.ValidPath(rel) {
		return nil, "", fs.ErrNotExist
	}

	candidates := []string{rel}
	if platform != "" && fs.ValidPath(platform) && !strings.Contains(platform, "/") {
		candidates = []string{path.Join(platform, rel), rel}
	}

	for _, name := range candidates {
		data, err := fs.ReadFile(fsys, name)
		if err == nil {
			return data, name, nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !isDirError(fsys, name) {
			return nil, name, err
		}
	}
	return nil, "", fs.ErrNotExist
}

// isDirError reports whether name is a directory, which is served as not found.
func isDirError(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && info.IsDir()
}
