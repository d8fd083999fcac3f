// Package server is the directly-listening variant: phones connect to the
// agent itself instead of going through a relay.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/dispatch"
	"github.com/Odwa2003/Phone-Controller/internal/models"
	"github.com/Odwa2003/Phone-Controller/internal/transport"
)

// Dispatcher handles one inbound frame.
type Dispatcher interface {
	Dispatch(ctx context.Context, raw []byte, control dispatch.ControlHandler) *models.Envelope
}

type Options struct {
	Token           string
	MaxAuthFailures int
	AllowedOrigin   string
	PingInterval    time.Duration
}

type Server struct {
	router     *chi.Mux
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	opts       Options
	logger     *zap.Logger

	active atomic.Int64
	wg     sync.WaitGroup
}

func NewServer(dispatcher Dispatcher, opts Options, logger *zap.Logger) *Server {
	if opts.MaxAuthFailures < 1 {
		opts.MaxAuthFailures = 3
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{opts.AllowedOrigin},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	s := &Server{
		router:     r,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ws", s.handleWS)
	s.router.Get("/", s.handleWS)
}

func (s *Server) Router() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// and waits for open connections to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Listening for phone connections", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.wg.Wait()
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.opts.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.opts.AllowedOrigin
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": s.active.Load(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.active.Add(1)
	defer s.active.Add(-1)

	c := &client{
		s:      s,
		conn:   transport.NewWSConn(ws, s.opts.PingInterval, s.logger),
		id:     uuid.NewString(),
		logger: s.logger.With(zap.String("remote", r.RemoteAddr)),
	}
	defer c.conn.Close()

	if token := r.URL.Query().Get("token"); token != "" && s.tokenOK(token) {
		c.authenticated = true
	}

	c.logger.Info("Phone connected", zap.String("connection_id", c.id), zap.Bool("authenticated", c.authenticated))
	err = c.serve(r.Context())
	c.logger.Info("Phone disconnected", zap.String("connection_id", c.id), zap.Error(err))
}

func (s *Server) tokenOK(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.Token)) == 1
}

// client is one phone connection.
type client struct {
	s      *Server
	conn   transport.Conn
	id     string
	logger *zap.Logger

	authenticated bool
	failures      int
}

var errTooManyFailures = errors.New("too many authentication failures")

func (c *client) serve(ctx context.Context) error {
	for {
		raw, err := c.conn.ReadMessage(ctx)
		if err != nil {
			return err
		}

		var env *models.Envelope
		if c.authenticated {
			env = c.s.dispatcher.Dispatch(ctx, raw, c)
		} else {
			env = c.authenticate(raw)
		}

		if env != nil {
			data, err := json.Marshal(env)
			if err != nil {
				return fmt.Errorf("failed to marshal response: %w", err)
			}
			if err := c.conn.WriteMessage(ctx, data); err != nil {
				return err
			}
		}

		if c.failures >= c.s.opts.MaxAuthFailures {
			c.logger.Warn("Closing connection after repeated authentication failures", zap.Int("failures", c.failures))
			return errTooManyFailures
		}
	}
}

// authenticate handles a frame received before the connection is trusted.
func (c *client) authenticate(raw []byte) *models.Envelope {
	var frame models.AuthFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.failures++
		return models.Failed(models.ErrMsgInvalidJSON)
	}

	if frame.Type != models.FrameAuth {
		c.failures++
		return models.Failed(models.ErrMsgAuthRequired)
	}

	ok := c.s.tokenOK(frame.Token)
	if !ok {
		c.failures++
		c.logger.Warn("Authentication failed", zap.Int("failures", c.failures))
		return &models.Envelope{OK: false, Type: models.FrameAuthResponse, Auth: &ok, Error: models.ErrMsgAuthFailed}
	}

	c.authenticated = true
	c.failures = 0
	c.logger.Info("Phone authenticated", zap.String("connection_id", c.id))
	return &models.Envelope{OK: true, Type: models.FrameAuthResponse, Auth: &ok}
}

// HandleControl answers reserved frames on an authenticated connection.
func (c *client) HandleControl(_ context.Context, frame models.Frame) *models.Envelope {
	if frame.Type == models.FrameAuth {
		return c.authenticate(frame.Raw)
	}
	return nil
}
