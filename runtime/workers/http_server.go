package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// HTTPServerWorker serves handler on address until the context is canceled,
// then shuts the server down gracefully. Requests inherit the worker context.
type HTTPServerWorker struct {
	log             *slog.Logger
	address         string
	handler         http.Handler
	shutdownTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
}

func NewHTTPServerWorker(log *slog.Logger, address string, handler http.Handler,
	shutdownTimeout time.Duration) *HTTPServerWorker {
	return &HTTPServerWorker{
		log:             log,
		address:         address,
		handler:         handler,
		shutdownTimeout: shutdownTimeout,
	}
}

// Listen binds the address ahead of Run, so a bind failure is reported
// before supervision starts instead of being retried forever.
func (w *HTTPServerWorker) Listen() error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", w.address, err)
	}
	w.mu.Lock()
	w.listener = listener
	w.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (w *HTTPServerWorker) Addr() net.Addr {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listener == nil {
		return nil
	}
	return w.listener.Addr()
}

// Run serves on the listener bound by Listen, or binds a fresh one when
// restarted.
func (w *HTTPServerWorker) Run(ctx context.Context) error {
	w.mu.Lock()
	listener := w.listener
	w.listener = nil
	w.mu.Unlock()

	if listener == nil {
		var err error
		if listener, err = net.Listen("tcp", w.address); err != nil {
			return err
		}
	}
	return w.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (w *HTTPServerWorker) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           w.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", listener.Addr().String(), "at", time.Now().UTC())
		errChan <- server.Serve(listener)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		w.log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	w.log.Info("HTTP server stopped")
	return nil
}
