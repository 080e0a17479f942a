// Package trap pkg/trap/receiver.go implements the UDP trap listener of
// spec.md §4.6: a privileged-port-with-fallback bind sequence wrapped
// around gosnmp.TrapListener, following the bind/OnNewTrap/graceful-Stop
// shape of the reference corpus's trapreceiver package.
package trap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/fmfleet/txmoncore/pkg/models"
)

// Config controls the receiver's bind and buffering behavior.
type Config struct {
	// PrimaryPort is tried first (default 162).
	PrimaryPort int
	// FallbackPort is tried if the primary port cannot be bound (default
	// 10162).
	FallbackPort int
	// RequirePrivileged, when true and AutoFallback is false, prompts an
	// interactive operator before falling back and aborts non-interactively
	// (spec.md §4.6 step 2).
	RequirePrivileged bool
	// AutoFallback skips the prompt and always falls back on a privileged
	// bind failure.
	AutoFallback bool

	// BindAddr is the interface to bind (default "0.0.0.0").
	BindAddr string

	// OutputBufferSize is given a default but not read: each trap is
	// attributed and stored in its own goroutine, with no queue or bound.
	OutputBufferSize int

	// CloseTimeout bounds how long Stop waits for the UDP socket to close.
	CloseTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PrimaryPort == 0 {
		c.PrimaryPort = 162
	}

	if c.FallbackPort == 0 {
		c.FallbackPort = 10162
	}

	if c.BindAddr == "" {
		c.BindAddr = "0.0.0.0"
	}

	if c.OutputBufferSize <= 0 {
		c.OutputBufferSize = 1000
	}

	if c.CloseTimeout == 0 {
		c.CloseTimeout = 3 * time.Second
	}

	return c
}

// Receiver listens for SNMP traps, normalizes and attributes them, and
// appends them through Store. It runs independently of the poll scheduler;
// a malfunctioning receiver never blocks or crashes the polling path.
type Receiver struct {
	cfg   Config
	store Store

	listener *gosnmp.TrapListener

	mu         sync.Mutex
	running    bool
	boundAddr  string
	stopCh     chan struct{}
	doneCh     chan struct{}

	// OnTrap, if set, is called once per successfully normalized trap —
	// used to drive the /metrics traps_received_total counter.
	OnTrap func()
}

// New constructs a Receiver. Call Start to bind and begin listening.
func New(cfg Config, store Store) *Receiver {
	return &Receiver{
		cfg:   cfg.withDefaults(),
		store: store,
	}
}

// ListenAddr returns the address actually bound after a successful Start
// (primary or fallback), or "" before Start.
func (r *Receiver) ListenAddr() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.boundAddr
}

// Start executes the bind sequence of spec.md §4.6 and, on success, begins
// dispatching received traps to Store in the background. It blocks until
// the listener is ready or a bind attempt fails terminally.
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("trap: receiver already running")
	}
	r.mu.Unlock()

	addr, err := r.resolveBindAddr()
	if err != nil {
		return err
	}

	tl := gosnmp.NewTrapListener()
	tl.Params = &gosnmp.GoSNMP{
		Version: gosnmp.Version2c,
		Logger:  gosnmp.NewLogger(stdLogAdapter{}),
	}
	tl.CloseTimeout = r.cfg.CloseTimeout
	tl.OnNewTrap = r.handleTrap

	errCh := make(chan error, 1)
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		errCh <- tl.Listen(addr)
	}()

	select {
	case <-tl.Listening():
	case err := <-errCh:
		return fmt.Errorf("trap: listen %s: %w", addr, err)
	case <-ctx.Done():
		tl.Close()
		return ctx.Err()
	}

	r.mu.Lock()
	r.listener = tl
	r.running = true
	r.boundAddr = addr
	r.stopCh = make(chan struct{})
	r.doneCh = doneCh
	r.mu.Unlock()

	log.Printf("trap: listening on %s", addr)

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-r.stopCh:
		}
	}()

	return nil
}

// resolveBindAddr implements the bind sequence: try the primary port,
// falling back on EACCES/EADDRINUSE per policy. It performs a real
// bind-and-close probe on the primary port so permission failures are
// caught before gosnmp's own listener attempt, since gosnmp.TrapListener
// reports bind errors asynchronously on errCh rather than from Listen
// itself.
func (r *Receiver) resolveBindAddr() (string, error) {
	primary := net.JoinHostPort(r.cfg.BindAddr, strconv.Itoa(r.cfg.PrimaryPort))

	probeErr := probeBind(primary)
	if probeErr == nil {
		return primary, nil
	}

	if !isPermissionOrInUse(probeErr) {
		return "", fmt.Errorf("trap: bind %s: %w", primary, probeErr)
	}

	if r.cfg.RequirePrivileged && !r.cfg.AutoFallback {
		if !confirmFallback(r.cfg.PrimaryPort, r.cfg.FallbackPort) {
			return "", fmt.Errorf("trap: refusing to bind fallback port %d without operator confirmation "+
				"(run with CAP_NET_BIND_SERVICE, elevated privileges, or SNMP_TRAP_AUTO_FALLBACK=true): %w",
				r.cfg.FallbackPort, probeErr)
		}
	}

	fallback := net.JoinHostPort(r.cfg.BindAddr, strconv.Itoa(r.cfg.FallbackPort))

	log.Printf("trap: cannot bind privileged port %d (%v); falling back to %d — grant "+
		"cap_net_bind_service or run with elevated privileges to use %d",
		r.cfg.PrimaryPort, probeErr, r.cfg.FallbackPort, r.cfg.PrimaryPort)

	if err := probeBind(fallback); err != nil {
		return "", fmt.Errorf("trap: bind fallback %s: %w", fallback, err)
	}

	return fallback, nil
}

// probeBind opens and immediately closes a UDP socket on addr to surface
// permission/conflict errors deterministically, without leaving gosnmp's
// TrapListener holding a half-failed bind.
func probeBind(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}

	return conn.Close()
}

func isPermissionOrInUse(err error) bool {
	return errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EADDRINUSE) ||
		errors.Is(err, os.ErrPermission)
}

// confirmFallback prompts on an interactive terminal, or refuses
// non-interactively (spec.md §4.6 step 2).
func confirmFallback(primary, fallback int) bool {
	if !isInteractive() {
		return false
	}

	fmt.Printf("trap: cannot bind privileged port %d; fall back to %d? [y/N] ", primary, fallback)

	reader := bufio.NewReader(os.Stdin)

	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))

	return answer == "y" || answer == "yes"
}

// isInteractive reports whether stdin looks like a terminal rather than a
// pipe or redirected file.
func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

// Stop shuts down the listener and waits (bounded by CloseTimeout) for the
// listen goroutine to exit. Safe to call multiple times.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	listener := r.listener
	stopCh := r.stopCh
	doneCh := r.doneCh
	r.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	if stopCh != nil {
		close(stopCh)
	}

	if doneCh == nil {
		return
	}

	select {
	case <-doneCh:
	case <-time.After(r.cfg.CloseTimeout):
		log.Printf("trap: stop timed out waiting for listener to close")
	}

	log.Printf("trap: stopped")
}

// handleTrap is gosnmp's callback, invoked on its internal listener
// goroutine — it must not block. Normalization runs inline; attribution (a
// transmitter-list read) and the store write run in a separate goroutine,
// matching the
// receiver's "never crash, never block polling" contract (spec.md §4.6).
func (r *Receiver) handleTrap(pkt *gosnmp.SnmpPacket, addr *net.UDPAddr) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("trap: recovered panic handling trap from %v: %v", addr, rec)
		}
	}()

	trap, err := Normalize(pkt, addr)
	if err != nil {
		log.Printf("trap: normalize failed from %v: %v", addr, err)
		return
	}

	if r.OnTrap != nil {
		r.OnTrap()
	}

	go r.storeAttributed(trap)
}

// storeAttributed attributes the trap against the current transmitter table
// and appends it. Run off the gosnmp callback goroutine since it performs
// I/O; store/list errors are logged and swallowed, never propagated
// (spec.md §4.6, §4.8).
func (r *Receiver) storeAttributed(trap models.SnmpTrap) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if transmitters, err := r.store.ListTransmitters(ctx); err != nil {
		log.Printf("trap: attribution lookup failed, storing unattributed: %v", err)
	} else {
		attribute(transmitters, &trap)
	}

	if err := r.store.StoreTrap(ctx, &trap); err != nil {
		log.Printf("trap: store_trap failed for source %s: %v", trap.SourceHost, err)
	}
}

// stdLogAdapter bridges gosnmp's Printf-style Logger interface to the
// package's standard log.Logger, matching every other package's logging
// convention in this codebase.
type stdLogAdapter struct{}

func (stdLogAdapter) Print(v ...interface{}) {
	log.Print(v...)
}

func (stdLogAdapter) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}
