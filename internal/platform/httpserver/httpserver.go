package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tipjar/pkg/platform/httputil"
)

// New builds an HTTP server with the project's timeouts. WriteTimeout is
// left unset because the event stream holds connections open.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down within timeout.
func Run(ctx context.Context, srv *http.Server, timeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Checker is a dependency that can report readiness.
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

type checkFunc struct {
	name string
	ping func(ctx context.Context) error
}

func (c checkFunc) Name() string { return c.name }
func (c checkFunc) Ping(ctx context.Context) error { return c.ping(ctx) }

// CheckFunc adapts a ping function into a named Checker.
func CheckFunc(name string, ping func(ctx context.Context) error) Checker {
	return checkFunc{name: name, ping: ping}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health answers 200 when every checker pings, 503 otherwise.
func Health(checkers ...Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checkers))}
		status := http.StatusOK
		for _, c := range checkers {
			if err := c.Ping(ctx); err != nil {
				resp.Checks[c.Name()] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name()] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
