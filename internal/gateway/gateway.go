// Package gateway is the HTTP side door of the chat server.  Browsers
// reach the same line protocol over a websocket at /ws; operators get
// the metrics at /stats and a liveness check at /health.
package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"tcpchat/internal/limiter"
	"tcpchat/internal/metrics"
	"tcpchat/internal/transport"
	"tcpchat/util"
)

// AcceptFunc hands an upgraded connection to the event loop.  It
// returns false if the loop is no longer accepting.
type AcceptFunc func(conn transport.Conn) bool

// Gateway serves the websocket entry point and the operator endpoints.
type Gateway struct {
	Accept  AcceptFunc
	Limiter *limiter.IPLimiter
	Metrics *metrics.Collector
	Logger  *util.Logger

	upgrader websocket.Upgrader
}

// New returns a Gateway that hands websocket sessions to accept.
func New(accept AcceptFunc, lim *limiter.IPLimiter, m *metrics.Collector, logger *util.Logger) *Gateway {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Gateway{
		Accept:  accept,
		Limiter: lim,
		Metrics: m,
		Logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The chat has no authentication; any page may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router builds the chi routing table.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(g.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n")) //nolint:errcheck
	})
	r.Get("/stats", g.handleStats)
	r.Get("/ws", g.handleWebSocket)

	return r
}

func (g *Gateway) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(g.Metrics.JSON())) //nolint:errcheck
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := g.Limiter.AdmitHost(hostOf(r.RemoteAddr)); err != nil {
		g.Metrics.Throttled()
		g.Logger.Warn("websocket rejected: %v", err)
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		g.Logger.Verbose("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	conn := transport.NewWSConn(ws, peerAddr(r.RemoteAddr))
	if !g.Accept(conn) {
		ws.Close()
	}
}

// Serve runs the HTTP server on addr until ctx is cancelled.  ready,
// if non-nil, receives the bound address once listening.
func (g *Gateway) Serve(ctx context.Context, addr string, ready chan<- net.Addr) error {
	ln, err := transport.Listen(ctx, addr)
	if err != nil {
		return err
	}
	if ready != nil {
		ready <- ln.Addr()
	}

	srv := &http.Server{
		Handler:           g.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	g.Logger.Info("gateway listening on %s (/ws, /stats, /health)", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// peerAddr is the websocket client's address as reported by RealIP.
type peerAddr string

func (a peerAddr) Network() string { return "ws" }
func (a peerAddr) String() string  { return string(a) }

func hostOf(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil || host == "" {
		return remote
	}
	return host
}

// requestLogger logs one line per request, escalating by status.
func requestLogger(logger *util.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			l := logger.With("request_id", middleware.GetReqID(r.Context()))
			status := ww.Status()
			switch {
			case status >= 500:
				l.Error("%s %s -> %d (%s)", r.Method, r.RequestURI, status, time.Since(start))
			case status >= 400:
				l.Warn("%s %s -> %d (%s)", r.Method, r.RequestURI, status, time.Since(start))
			default:
				l.Verbose("%s %s -> %d (%s)", r.Method, r.RequestURI, status, time.Since(start))
			}
		})
	}
}
