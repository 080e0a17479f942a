// Command core is the entrypoint of the monitoring core process: load
// config, open storage, start the poll scheduler and the trap receiver,
// then serve the REST/SSE surface until a signal arrives.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/fmfleet/txmoncore/pkg/api"
	"github.com/fmfleet/txmoncore/pkg/config"
	"github.com/fmfleet/txmoncore/pkg/db"
	"github.com/fmfleet/txmoncore/pkg/lifecycle"
	"github.com/fmfleet/txmoncore/pkg/mib"
	"github.com/fmfleet/txmoncore/pkg/scheduler"
	"github.com/fmfleet/txmoncore/pkg/snmpsession"
	"github.com/fmfleet/txmoncore/pkg/trap"
)

func main() {
	configPath := flag.String("config", "/etc/txmoncore/core.json", "path to the core config file")
	flag.Parse()

	cfg, err := config.LoadCore(*configPath)
	if err != nil {
		log.Fatalf("core: config load failed: %v", err)
	}

	store, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("core: database open failed: %v", err)
	}

	mapper := mib.New()
	if len(cfg.MIBFiles) > 0 {
		if err := mapper.Load(cfg.MIBFiles...); err != nil {
			log.Printf("core: mib load failed, continuing without symbolic names: %v", err)
		}
	}

	sessions := snmpsession.NewManager()
	sched := scheduler.New(store, sessions)
	sched.SetPollRate(cfg.MaxPollRate, cfg.MaxPollBurst)

	trapRecv := trap.New(trap.Config{
		PrimaryPort:       cfg.TrapPort,
		FallbackPort:      cfg.TrapFallbackPort,
		RequirePrivileged: cfg.TrapRequirePrivileged,
		AutoFallback:      cfg.TrapAutoFallback,
	}, store)

	svc := &coreService{
		store:         store,
		sched:         sched,
		trapRecv:      trapRecv,
		retention:     time.Duration(cfg.RetentionWindow),
		pruneInterval: time.Duration(cfg.PruneInterval),
		stopPrune:     make(chan struct{}),
	}

	apiServer := api.New(store, sched, snmpsession.NewManager(), mapper, cfg.AssetsDir)
	sched.OnPoll = apiServer.RecordPoll
	trapRecv.OnTrap = apiServer.RecordTrap

	store.SetReloadNotifier(func(ctx context.Context) {
		if err := sched.ReloadFromStore(ctx); err != nil {
			log.Printf("core: reload failed: %v", err)
		}
	})

	opts := &lifecycle.ServerOptions{
		ListenAddr:     cfg.HTTPAddr,
		ServiceName:    "txmoncore-core",
		Service:        svc,
		Handler:        apiServer.Router(),
		Ready:          func() { apiServer.SetReady(true) },
		MaxConnections: cfg.MaxConnections,
	}

	if err := lifecycle.RunServer(context.Background(), opts); err != nil {
		log.Fatalf("core: exited with error: %v", err)
	}
}

// coreService adapts storage, the poll scheduler, the trap receiver, and the
// retention sweep into the single lifecycle.Service the process manages.
type coreService struct {
	store    db.Store
	sched    *scheduler.Scheduler
	trapRecv *trap.Receiver

	retention     time.Duration
	pruneInterval time.Duration
	stopPrune     chan struct{}
}

func (s *coreService) Start(ctx context.Context) error {
	if err := s.store.InitializeSchema(ctx); err != nil {
		return err
	}

	if err := s.sched.Start(ctx); err != nil {
		return err
	}

	if err := s.trapRecv.Start(ctx); err != nil {
		return err
	}

	go s.pruneLoop()

	return nil
}

func (s *coreService) Stop(ctx context.Context) error {
	close(s.stopPrune)

	s.trapRecv.Stop()
	s.sched.Stop()

	return s.store.Close()
}

// pruneLoop runs the retention sweep on a fixed interval until Stop closes
// stopPrune. A non-positive retention window disables pruning entirely.
func (s *coreService) pruneLoop() {
	if s.retention <= 0 {
		return
	}

	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopPrune:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.store.PruneOldData(ctx, s.retention); err != nil {
				log.Printf("core: prune_old_data failed: %v", err)
			}
			cancel()
		}
	}
}
