package main

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oszuidwest/zwfm-scope/internal/config"
	"github.com/oszuidwest/zwfm-scope/internal/player"
	"github.com/oszuidwest/zwfm-scope/internal/scope"
	"github.com/oszuidwest/zwfm-scope/internal/server"
	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// statusInterval is how often the full status is pushed without a command.
const statusInterval = 3 * time.Second

// Server is the HTTP server for the web interface.
type Server struct {
	config   *config.Config
	player   *player.Player
	sessions *server.SessionManager
	commands *server.CommandHandler
	version  *VersionChecker
}

// NewServer returns a Server driving p. testTriggers back the test_* commands.
func NewServer(cfg *config.Config, p *player.Player, version *VersionChecker, testTriggers map[string]func() error) *Server {
	return &Server{
		config:   cfg,
		player:   p,
		sessions: server.NewSessionManager(),
		commands: server.NewCommandHandler(cfg, p, testTriggers),
		version:  version,
	}
}

func (s *Server) frameMessage() any {
	return map[string]any{
		"type":  "frame",
		"frame": s.player.Frame(),
	}
}

func (s *Server) statusMessage() any {
	cfg := s.config.Snapshot()
	return map[string]any{
		"type":   "status",
		"player": s.player.Status(),
		"settings": map[string]any{
			"silence_threshold": cfg.SilenceThreshold,
			"silence_duration":  cfg.SilenceDuration,
			"silence_recovery":  cfg.SilenceRecovery,
			"silence_webhook":   cfg.WebhookURL,
			"silence_log_path":  cfg.LogPath,
			"email_smtp_host":   cfg.EmailSMTPHost,
			"email_smtp_port":   cfg.EmailSMTPPort,
			"email_username":    cfg.EmailUsername,
			"email_recipients":  cfg.EmailRecipients,
			"recording_enabled": cfg.RecordingEnabled,
			"audio_backend":     cfg.AudioBackend,
		},
		"version": s.version.GetInfo(),
	}
}

// handleWebSocket streams frames and status to the client and runs its commands.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer util.SafeCloseFunc(conn, "WebSocket connection")()

	fps := s.config.Snapshot().ScopeFrameRate
	server.NewClient(conn).Serve(s.commands, server.Feed{
		Frame:          s.frameMessage,
		Status:         s.statusMessage,
		FrameInterval:  time.Second / time.Duration(max(fps, 1)),
		StatusInterval: statusInterval,
	})
}

// handleStatus serves the player status and the current meter reading as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"player": s.player.Status(),
		"levels": s.player.Frame().Levels,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to write status", "error", err)
	}
}

// Default drawing area for /api/scope.
const (
	scopeWidth  = 800
	scopeHeight = 200
)

// handleScope serves the current waveform mapped onto a width x height area.
func (s *Server) handleScope(w http.ResponseWriter, r *http.Request) {
	width := queryFloat(r, "width", scopeWidth)
	height := queryFloat(r, "height", scopeHeight)

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"width":  width,
		"height": height,
		"points": scope.Points(s.player.Frame().Scope, width, height),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to write scope", "error", err)
	}
}

// queryFloat returns the positive number in query parameter key, or def.
func queryFloat(r *http.Request, key string, def float64) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil || !(v > 0) || v > 1e6 {
		return def
	}
	return v
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	msg := ""
	if r.URL.Query().Has("error") {
		msg = "Invalid username or password"
	}
	page := strings.Replace(loginHTML, "{{CSRF}}", html.EscapeString(s.sessions.CreateCSRFToken()), 1)
	page = strings.Replace(page, "{{ERROR}}", msg, 1)

	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write([]byte(page)); err != nil {
		slog.Error("failed to write login page", "error", err)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !s.sessions.ValidateCSRFToken(r.PostFormValue("csrf_token")) {
		slog.Warn("login rejected: invalid CSRF token", "remote", r.RemoteAddr)
		http.Redirect(w, r, "/login?error", http.StatusFound)
		return
	}

	cfg := s.config.Snapshot()
	if !s.sessions.Login(w, r, r.PostFormValue("username"), r.PostFormValue("password"), cfg.WebUser, cfg.WebPassword) {
		slog.Warn("login failed", "remote", r.RemoteAddr)
		http.Redirect(w, r, "/login?error", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(w, r)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// staticFile is an embedded asset with its content type.
type staticFile struct {
	contentType string
	content     string
	name        string
}

// staticFiles maps URL paths to embedded assets.
var staticFiles = map[string]staticFile{
	"/style.css": {
		contentType: "text/css",
		content:     styleCSS,
		name:        "style.css",
	},
	"/app.js": {
		contentType: "application/javascript",
		content:     appJS,
		name:        "app.js",
	},
}

// handleStatic serves the embedded web interface.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" || path == "/index.html" {
		w.Header().Set("Content-Type", "text/html")
		page := strings.Replace(indexHTML, "{{VERSION}}", html.EscapeString(Version), 1)
		page = strings.ReplaceAll(page, "{{YEAR}}", fmt.Sprintf("%d", time.Now().Year()))
		if _, err := w.Write([]byte(page)); err != nil {
			slog.Error("failed to write index.html", "error", err)
		}
		return
	}

	if file, ok := staticFiles[path]; ok {
		w.Header().Set("Content-Type", file.contentType)
		if _, err := w.Write([]byte(file.content)); err != nil {
			slog.Error("failed to write static file", "file", file.name, "error", err)
		}
		return
	}

	http.NotFound(w, r)
}

// SetupRoutes returns an [http.Handler] with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	auth := s.sessions.AuthMiddleware()

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /style.css", s.handleStatic)

	mux.HandleFunc("GET /ws", auth(s.handleWebSocket))
	mux.HandleFunc("GET /api/status", auth(s.handleStatus))
	mux.HandleFunc("GET /api/scope", auth(s.handleScope))
	mux.HandleFunc("GET /", auth(s.handleStatic))

	return mux
}

// Start begins serving on the configured port and returns the server for shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.WebPort())
	slog.Info("starting web server", "addr", addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
