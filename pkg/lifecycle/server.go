// Package lifecycle pkg/lifecycle/server.go drives process startup and
// graceful shutdown: bring up the domain service, bring up the HTTP+SSE
// server in front of it, then block until a signal or a fatal error from
// either arrives and tear both down within a bounded timeout.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
)

const (
	// ShutdownTimeout bounds how long RunServer waits for the HTTP server's
	// in-flight requests and the domain service's own teardown to finish.
	ShutdownTimeout = 10 * time.Second

	// httpReadHeaderTimeout guards against slow-header connections holding a
	// listener goroutine open indefinitely.
	httpReadHeaderTimeout = 5 * time.Second
)

// Service defines the domain object a server hosts: everything needed to
// start polling/listening and everything needed to wind it down cleanly.
// Start must not block past the point where background work is running.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// ServerOptions configures RunServer.
type ServerOptions struct {
	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr string
	// ServiceName appears in startup/shutdown log lines.
	ServiceName string
	// Service is the domain object whose lifecycle is tied to the process.
	Service Service
	// Handler serves the REST/SSE/metrics surface (pkg/api.Server.Router()).
	Handler http.Handler
	// Ready is invoked once both Service.Start and the HTTP listener have
	// come up, letting the caller flip /healthz to serving.
	Ready func()
	// MaxConnections bounds simultaneous accepted connections on the HTTP
	// listener. Zero means unlimited.
	MaxConnections int
}

// RunServer starts opts.Service and an HTTP server for opts.Handler, then
// blocks until SIGINT/SIGTERM or a fatal error from either, at which point
// it shuts both down within ShutdownTimeout.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Printf("*** starting service %s", opts.ServiceName)

	errChan := make(chan error, 2)

	go func() {
		if err := opts.Service.Start(ctx); err != nil {
			errChan <- fmt.Errorf("service start: %w", err)
		}
	}()

	listener, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.ListenAddr, err)
	}

	if opts.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, opts.MaxConnections)
	}

	httpServer := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           opts.Handler,
		ReadHeaderTimeout: httpReadHeaderTimeout,
	}

	go func() {
		log.Printf("listening on %s", opts.ListenAddr)

		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	if opts.Ready != nil {
		opts.Ready()
	}

	return handleShutdown(ctx, cancel, httpServer, opts.Service, errChan)
}

func handleShutdown(
	ctx context.Context, cancel context.CancelFunc, httpServer *http.Server, svc Service, errChan chan error,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Printf("received signal %v, initiating shutdown", sig)
	case err := <-errChan:
		log.Printf("received fatal error, initiating shutdown: %v", err)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = svc.Stop(shutdownCtx)

		return err
	case <-ctx.Done():
		log.Printf("context canceled, initiating shutdown")
		return ctx.Err()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}

	if err := svc.Stop(shutdownCtx); err != nil {
		log.Printf("service shutdown error: %v", err)
		return fmt.Errorf("shutdown error: %w", err)
	}

	return nil
}
