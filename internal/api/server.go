// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/redtable/combat-tracker/internal/dispatcher"
	"github.com/redtable/combat-tracker/internal/handlers"
	"github.com/redtable/combat-tracker/internal/tracker"
	"github.com/redtable/combat-tracker/internal/util"
)

// maxBodySize bounds request bodies; an add block is a few hundred bytes.
const maxBodySize = 64 << 10

// actions maps the {action} path segment to the command it dispatches.
// The combatant ID is always the first argument.
var actions = map[string]string{
	"copy":      ":COPY:",
	"kind":      ":KIND:",
	"init":      ":INIT:",
	"init-mod":  ":INIT:MOD:",
	"roll-init": ":ROLL:INIT:",
	"hit":       ":HIT:",
	"fire":      ":FIRE:",
	"reload":    ":RELOAD:",
	"stun":      ":STUN:",
	"clear":     ":CLEAR:",
	"edit":      ":EDIT:",
	"expand":    ":EXPAND:",
}

// Dispatcher runs a tracker command.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Server exposes the tracker commands over HTTP for the rendering layer.
type Server struct {
	d      Dispatcher
	logger *slog.Logger
	router *mux.Router
	status func() any
}

// NewServer creates the server and its routes.
func NewServer(d Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		d:      d,
		logger: logger.With("component", "api"),
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

// WithStatus serves the result of fn on GET /api/status.
func (s *Server) WithStatus(fn func() any) *Server {
	s.status = fn
	return s
}

func (s *Server) routes() {
	r := s.router.PathPrefix("/api").Subrouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		if s.status == nil {
			writeError(w, http.StatusNotFound, "status not available")
			return
		}
		writeJSON(w, http.StatusOK, s.status())
	}).Methods(http.MethodGet)

	r.HandleFunc("/combatants", s.command(":LIST:", http.StatusOK)).Methods(http.MethodGet)
	r.HandleFunc("/combatants", s.handleAdd).Methods(http.MethodPost)
	r.HandleFunc("/combatants/{id}", s.command(":REMOVE:", http.StatusOK)).Methods(http.MethodDelete)
	r.HandleFunc("/combatants/{id}/{action}", s.handleAction).Methods(http.MethodPost)

	r.HandleFunc("/turn/next", s.command(":NEXT:", http.StatusOK)).Methods(http.MethodPost)
	r.HandleFunc("/turn/prev", s.command(":PREV:", http.StatusOK)).Methods(http.MethodPost)
	r.HandleFunc("/initiative/roll", s.command(":ROLL:INIT:", http.StatusOK)).Methods(http.MethodPost)
	r.HandleFunc("/roll", s.command(":ROLL:", http.StatusOK)).Methods(http.MethodPost)
	r.HandleFunc("/fields/{kind}", s.command(":FIELDS:", http.StatusOK)).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "no such route")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router.Use(s.withLogging)
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return withCORS(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// command dispatches cmd with the path variables as arguments.
func (s *Server) command(cmd string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var args []string
		vars := mux.Vars(r)
		if id, ok := vars["id"]; ok {
			args = append(args, id)
		}
		if kind, ok := vars["kind"]; ok {
			args = append(args, kind)
		}
		s.dispatch(w, cmd, args, status)
	}
}

// handleAdd takes the add block as the raw request body.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	s.dispatch(w, ":ADD:", []string{string(body)}, http.StatusCreated)
}

// handleAction runs a per-combatant command. Extra arguments come from a
// JSON body {"args": [...]} or a plain text body split like a command line.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cmd, ok := actions[vars["action"]]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown action %q", vars["action"]))
		return
	}
	extra, err := readArgs(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.dispatch(w, cmd, append([]string{vars["id"]}, extra...), http.StatusOK)
}

type argsBody struct {
	Args []string `json:"args"`
}

func readArgs(w http.ResponseWriter, r *http.Request) ([]string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.New("cannot read body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var b argsBody
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %v", err)
		}
		return b.Args, nil
	}
	return util.SplitArgs(string(body)), nil
}

func (s *Server) dispatch(w http.ResponseWriter, cmd string, args []string, status int) {
	out, err := s.d.Dispatch(dispatcher.Event{Command: cmd, Args: args})
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			s.logger.Error("Command failed", "command", cmd, "error", err)
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, status, out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrNotFound), errors.Is(err, dispatcher.ErrUnknownCommand):
		return http.StatusNotFound
	case handlers.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, dispatcher.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": msg,
		"status":  code,
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request handled", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// withCORS lets a browser display served from another origin call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
