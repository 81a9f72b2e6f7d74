// Package server hosts the blockdraft editing API: REST endpoints for
// template CRUD and editor actions, a WebSocket channel that pushes a
// re-rendered preview after every applied change, and the embedded
// editor shell.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livetemplate/blockdraft"
	"github.com/livetemplate/blockdraft/internal/assets"
	"github.com/livetemplate/blockdraft/internal/cache"
	"github.com/livetemplate/blockdraft/internal/codegen"
	"github.com/livetemplate/blockdraft/internal/config"
	"github.com/livetemplate/blockdraft/internal/editor"
	"github.com/livetemplate/blockdraft/internal/export"
	"github.com/livetemplate/blockdraft/internal/store"
)

// previewCacheTTL bounds how long a rendered preview may be served
// without re-rendering. Mutations invalidate eagerly, so the TTL only
// matters for sample data changed behind the server's back.
const previewCacheTTL = 5 * time.Minute

// errSaveFailed wraps store write failures so handlers can map them to
// 5xx instead of blaming the client.
var errSaveFailed = errors.New("failed to save template")

// session serializes access to one open document. The REST API and the
// WebSocket handler share the same session, so every edit goes through
// its lock.
type session struct {
	mu sync.Mutex
	ed *editor.Session
}

// State is the view of an open document reported back to clients after
// every operation.
type State struct {
	Template   blockdraft.Template `json:"template"`
	SelectedID string              `json:"selectedId,omitempty"`
	CanUndo    bool                `json:"canUndo"`
	CanRedo    bool                `json:"canRedo"`
}

func stateOf(ed *editor.Session) State {
	return State{
		Template:   ed.Template(),
		SelectedID: ed.Selected(),
		CanUndo:    ed.CanUndo(),
		CanRedo:    ed.CanRedo(),
	}
}

// Server is the blockdraft editing server.
type Server struct {
	rootDir string
	config  *config.Config
	store   store.Store
	sinks   *export.Registry
	cache   *cache.Memory

	ids blockdraft.IDGenerator
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	files    map[string]string // workspace file (relative path) -> template id
	sample   map[string]string // live sample data for preview substitution

	connMu      sync.RWMutex
	connections map[*websocket.Conn]*wsClient

	api     *APIHandler
	watcher *Watcher
	debug   bool
}

// New creates a server for the given workspace directory with the
// default configuration.
func New(rootDir string) (*Server, error) {
	return NewWithConfig(rootDir, config.DefaultConfig())
}

// NewWithConfig creates a server, opening the store and the delivery
// sinks named by the configuration.
func NewWithConfig(rootDir string, cfg *config.Config) (*Server, error) {
	st, err := store.NewFromConfig(cfg.Storage)
	if err != nil {
		return nil, err
	}

	sinks, err := export.RegistryFromConfig(cfg.Sinks)
	if err != nil {
		st.Close()
		return nil, err
	}

	srv := NewWithStore(rootDir, cfg, st)
	srv.sinks = sinks
	return srv, nil
}

// NewWithStore creates a server around an already opened store. Used by
// tests and by callers that manage the store themselves.
func NewWithStore(rootDir string, cfg *config.Config, st store.Store) *Server {
	srv := &Server{
		rootDir:     rootDir,
		config:      cfg,
		store:       st,
		sinks:       export.NewRegistry(),
		cache:       cache.NewMemory(),
		ids:         blockdraft.UUIDGenerator{},
		now:         time.Now,
		sessions:    make(map[string]*session),
		files:       make(map[string]string),
		sample:      cfg.Variables.GetSample(),
		connections: make(map[*websocket.Conn]*wsClient),
		debug:       cfg.Server.Debug,
	}
	srv.api = NewAPIHandler(srv)
	return srv
}

// Discover loads every template file under the workspace directory into
// the store. Directories starting with "_" or "." are skipped, as are
// files matching the configured ignore patterns. A file that fails to
// parse is logged and skipped; the rest of the workspace still loads.
func (s *Server) Discover() error {
	if s.rootDir == "" {
		return nil
	}

	err := filepath.WalkDir(s.rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if p == s.rootDir {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if ext := filepath.Ext(p); ext != ".json" && ext != ".md" {
			return nil
		}

		relPath, err := filepath.Rel(s.rootDir, p)
		if err != nil {
			return err
		}
		if s.ignored(relPath) {
			return nil
		}

		if err := s.loadFile(p, relPath); err != nil {
			log.Printf("[Server] Warning: failed to load %s: %v", relPath, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk workspace: %w", err)
	}
	return nil
}

// ignored reports whether relPath matches one of the configured ignore
// patterns. A trailing "/**" matches the whole subtree.
func (s *Server) ignored(relPath string) bool {
	rel := filepath.ToSlash(relPath)
	for _, pat := range s.config.Ignore {
		if strings.HasSuffix(pat, "/**") {
			if strings.HasPrefix(rel, strings.TrimSuffix(pat, "**")) {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// loadFile parses one workspace file and installs it in the store. Any
// open session for the document is dropped so the next access sees the
// file's contents. Markdown files carry no id of their own, so the id
// minted on first load is pinned to the path and survives reloads.
func (s *Server) loadFile(p, relPath string) error {
	tpl, err := blockdraft.Open(p, s.ids, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	if filepath.Ext(relPath) == ".md" {
		if id, ok := s.files[relPath]; ok {
			tpl.ID = id
		} else {
			s.files[relPath] = tpl.ID
		}
	} else {
		s.files[relPath] = tpl.ID
	}
	delete(s.sessions, tpl.ID)
	s.mu.Unlock()

	if err := s.store.Put(context.Background(), tpl); err != nil {
		return err
	}
	s.cache.InvalidatePrefix(tpl.ID + "\x00")
	return nil
}

func (s *Server) editorOptions() editor.Options {
	return editor.Options{
		IDs:          s.ids,
		Now:          s.now,
		HistoryLimit: s.config.Editor.GetHistoryLimit(),
	}
}

// openSession returns the session for the given template, creating one
// from the stored document on first access.
func (s *Server) openSession(ctx context.Context, id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	tpl, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess = &session{ed: editor.NewSession(tpl, s.editorOptions())}
	s.sessions[id] = sess
	return sess, nil
}

func (s *Server) dropSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Dispatch applies an editor action to the named template, persists the
// result, and pushes the new state to connected clients. A rejected
// action changes nothing. A store failure leaves the in-memory session
// authoritative; the edit is kept and the error is surfaced.
func (s *Server) Dispatch(ctx context.Context, id string, a editor.Action) (State, error) {
	sess, err := s.openSession(ctx, id)
	if err != nil {
		return State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.ed.Dispatch(a); err != nil {
		return State{}, err
	}

	st := stateOf(sess.ed)
	if err := s.persist(ctx, st.Template); err != nil {
		return State{}, err
	}
	s.broadcastState(id, st)
	return st, nil
}

// Undo steps the named template back one snapshot. At the oldest
// snapshot it reports applied=false and changes nothing.
func (s *Server) Undo(ctx context.Context, id string) (State, bool, error) {
	sess, err := s.openSession(ctx, id)
	if err != nil {
		return State{}, false, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	applied := sess.ed.Undo()
	st := stateOf(sess.ed)
	if applied {
		if err := s.persist(ctx, st.Template); err != nil {
			return State{}, false, err
		}
		s.broadcastState(id, st)
	}
	return st, applied, nil
}

// Redo steps the named template forward one snapshot. At the newest
// snapshot it reports applied=false and changes nothing.
func (s *Server) Redo(ctx context.Context, id string) (State, bool, error) {
	sess, err := s.openSession(ctx, id)
	if err != nil {
		return State{}, false, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	applied := sess.ed.Redo()
	st := stateOf(sess.ed)
	if applied {
		if err := s.persist(ctx, st.Template); err != nil {
			return State{}, false, err
		}
		s.broadcastState(id, st)
	}
	return st, applied, nil
}

// Select moves the block selection. Selection is editing state, not
// document state: nothing is persisted, but the change is pushed so
// every view highlights the same block.
func (s *Server) Select(ctx context.Context, id, blockID string) (State, error) {
	sess, err := s.openSession(ctx, id)
	if err != nil {
		return State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.ed.Select(blockID); err != nil {
		return State{}, err
	}
	st := stateOf(sess.ed)
	s.broadcastState(id, st)
	return st, nil
}

// stateFor reports the current state of the named template without
// changing it.
func (s *Server) stateFor(ctx context.Context, id string) (State, error) {
	sess, err := s.openSession(ctx, id)
	if err != nil {
		return State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return stateOf(sess.ed), nil
}

func (s *Server) persist(ctx context.Context, tpl blockdraft.Template) error {
	if err := s.store.Put(ctx, tpl); err != nil {
		return fmt.Errorf("%w %s: %v", errSaveFailed, tpl.ID, err)
	}
	s.cache.InvalidatePrefix(tpl.ID + "\x00")
	return nil
}

// currentTemplate returns the live document: the open session's copy
// when one exists, the stored document otherwise.
func (s *Server) currentTemplate(ctx context.Context, id string) (blockdraft.Template, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if ok {
		sess.mu.Lock()
		tpl := sess.ed.Template()
		sess.mu.Unlock()
		return tpl, nil
	}
	return s.store.Get(ctx, id)
}

// Templates lists every stored template.
func (s *Server) Templates(ctx context.Context) ([]blockdraft.Template, error) {
	return s.store.List(ctx)
}

// CreateTemplate creates and stores a blank template.
func (s *Server) CreateTemplate(ctx context.Context, name string) (blockdraft.Template, error) {
	tpl := blockdraft.NewTemplate(s.ids.NewID(), name, s.now())
	if err := s.store.Put(ctx, tpl); err != nil {
		return blockdraft.Template{}, fmt.Errorf("%w %s: %v", errSaveFailed, tpl.ID, err)
	}
	return tpl, nil
}

// DeleteTemplate removes a stored template and closes its session.
func (s *Server) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.dropSession(id)
	s.cache.InvalidatePrefix(id + "\x00")
	return nil
}

// Import validates and installs a template document. The store is only
// touched after the document decodes cleanly, so a rejected file leaves
// everything unchanged. An open session for the same id is replaced.
func (s *Server) Import(ctx context.Context, raw []byte, name string) (blockdraft.Template, error) {
	tpl, err := blockdraft.DecodeTemplate(raw, name)
	if err != nil {
		return blockdraft.Template{}, err
	}

	if err := s.store.Put(ctx, tpl); err != nil {
		return blockdraft.Template{}, fmt.Errorf("%w %s: %v", errSaveFailed, tpl.ID, err)
	}
	s.dropSession(tpl.ID)
	s.cache.InvalidatePrefix(tpl.ID + "\x00")
	return tpl, nil
}

// Preview renders the live document in preview mode, substituting the
// configured sample data. Renderings are cached per theme until the
// document or the sample data changes.
func (s *Server) Preview(ctx context.Context, id string, theme codegen.Theme) ([]byte, error) {
	if theme == "" {
		theme = codegen.Theme(s.config.Preview.GetTheme())
	}

	key := id + "\x00" + string(theme)
	if html, ok := s.cache.Get(key); ok {
		return html, nil
	}

	tpl, err := s.currentTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	html := []byte(codegen.Generate(tpl, codegen.Options{
		Mode:  codegen.ModePreview,
		Theme: theme,
		Data:  s.sampleData(),
	}))
	s.cache.Set(key, html, previewCacheTTL)
	return html, nil
}

// sampleData returns a copy of the live sample data.
func (s *Server) sampleData() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.sample))
	for k, v := range s.sample {
		out[k] = v
	}
	return out
}

// setSampleData replaces the live sample data and drops every cached
// rendering, since all of them baked in the old values.
func (s *Server) setSampleData(data map[string]string) {
	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = v
	}

	s.mu.Lock()
	s.sample = copied
	s.mu.Unlock()
	s.cache.InvalidateAll()
}

// EnableWatch enables file watching for workspace hot reload.
func (s *Server) EnableWatch(debug bool) error {
	watcher, err := NewWatcher(s.rootDir, func(filePath string) error {
		log.Printf("[Watch] File changed: %s", filePath)

		if err := s.Discover(); err != nil {
			return fmt.Errorf("failed to reload workspace: %w", err)
		}

		s.BroadcastReload(filePath)
		return nil
	}, debug)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	s.watcher = watcher
	s.watcher.Start()
	return nil
}

// Handler wraps the server in the configured middleware chain. The
// returned channel closes when the rate limiter's cleanup goroutine
// exits; cancel ctx to stop it. Without rate limiting the channel is
// already closed.
func (s *Server) Handler(ctx context.Context) (http.Handler, <-chan struct{}) {
	var h http.Handler = s

	closed := make(chan struct{})
	close(closed)
	var done <-chan struct{} = closed
	if s.config.API != nil && s.config.API.RateLimit != nil {
		mw, d := RateLimitMiddleware(ctx, s.config.API.GetRateLimitRPS(), s.config.API.GetRateLimitBurst(), s.config.API.GetMaxTrackedIPs())
		h = mw(h)
		done = d
	}

	h = CORSMiddleware(s.config.API.GetCORSOrigins())(h)
	h = SecurityHeadersMiddleware()(h)
	return h, done
}

// ServeHTTP routes requests to the API, the WebSocket endpoint, the
// embedded shell, or its assets.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	switch {
	case strings.HasPrefix(p, "/ws/"):
		s.serveWebSocket(w, r)
	case p == "/api" || strings.HasPrefix(p, "/api/"):
		s.api.ServeHTTP(w, r)
	case strings.HasPrefix(p, "/assets/"):
		s.serveAsset(w, r)
	case strings.HasPrefix(p, "/edit/"):
		s.serveShell(w, "editor.html")
	case p == "/":
		s.serveShell(w, "index.html")
	default:
		// No route found - send the client back to the template list
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) serveShell(w http.ResponseWriter, name string) {
	data, err := assets.Shell(name)
	if err != nil {
		http.Error(w, "shell page not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(data); err != nil {
		log.Printf("[Server] Failed to write shell page: %v", err)
	}
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	http.StripPrefix("/assets/", http.FileServer(http.FS(assets.ShellFS()))).ServeHTTP(w, r)
}

// Close releases the watcher, open connections, the render cache, the
// sink registry, and the store.
func (s *Server) Close() error {
	var errs []error
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connections = make(map[*websocket.Conn]*wsClient)
	s.connMu.Unlock()

	s.cache.Stop()

	if err := s.sinks.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
