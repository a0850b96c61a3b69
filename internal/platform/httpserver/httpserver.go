package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type Option func(*http.Server)

// WithTimeouts bounds how long a single request may take to read and answer.
// Zero values keep the defaults.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *http.Server) {
		if read > 0 {
			s.ReadTimeout = read
		}
		if write > 0 {
			s.WriteTimeout = write
		}
	}
}

// New builds the API server. Write timeouts stay above the router's request
// timeout so handlers can still render their own 504.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// ServeUntil runs srv until ctx is cancelled, then drains in-flight requests
// for at most grace.
func ServeUntil(ctx context.Context, srv *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
