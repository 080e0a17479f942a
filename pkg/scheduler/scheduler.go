// Package scheduler pkg/scheduler/scheduler.go implements the per-device
// poll scheduler of spec.md §4.5: one independent timer per device, gated
// on activity flags, recording results into a bounded per-device ring and
// asynchronously into the persistence store.
package scheduler

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fmfleet/txmoncore/pkg/metric"
	"github.com/fmfleet/txmoncore/pkg/models"
	"github.com/fmfleet/txmoncore/pkg/snmpsession"
)

// Store is the subset of db.Store the scheduler consumes. Depending on a
// narrow interface — rather than the full persistence contract — lets
// tests inject a fake without hand-rolling every CRUD method db.Store
// declares.
type Store interface {
	ListTransmitters(ctx context.Context) ([]models.Transmitter, error)
	ListSites(ctx context.Context) ([]models.Site, error)
	GetTransmitter(ctx context.Context, id string) (*models.Transmitter, error)
	GetSite(ctx context.Context, id string) (*models.Site, error)
	StoreMetrics(ctx context.Context, transmitterID string, result models.TransmitterMetricData) error
}

// defaultPollInterval is used when a transmitter's configured interval is
// non-positive.
const defaultPollInterval = 10 * time.Second

// stopTimeout bounds how long Stop waits for in-flight polls (spec.md §5).
const stopTimeout = 5 * time.Second

// device is the scheduler's private, in-memory view of a pollable
// transmitter. It caches the owning site's activity flag so gating doesn't
// need a store round-trip on the hot path beyond the pre-GET recheck.
type device struct {
	transmitter models.Transmitter
	siteActive  bool

	ring   *resultRing
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler owns the device table, the SNMP session manager, and the
// bounded per-device result rings. Its device table and session map are
// scheduler-private; all external mutation goes through ReloadFromStore.
type Scheduler struct {
	store    Store
	sessions *snmpsession.Manager

	mu      sync.Mutex
	devices map[string]*device
	wg      sync.WaitGroup

	baseCtx context.Context

	// limiter caps the fleet-wide rate of outgoing SNMP GETs, independent of
	// how many devices are configured, so a large fleet with short poll
	// intervals can't burst enough UDP requests to overrun a shared network
	// path. Nil means unlimited (the pre-limiter behavior).
	limiter *rate.Limiter

	// OnPoll, if set, is called once per completed poll with its outcome —
	// used to drive the /metrics poll_success_total/poll_failure_total
	// counters.
	OnPoll func(success bool)
}

// New constructs a Scheduler. Call ReloadFromStore to populate the device
// table and begin polling.
func New(store Store, sessions *snmpsession.Manager) *Scheduler {
	return &Scheduler{
		store:    store,
		sessions: sessions,
		devices:  make(map[string]*device),
	}
}

// SetPollRate bounds the fleet-wide SNMP GET rate to rps requests per second,
// with burst allowed to accumulate up to burst requests. Call before Start;
// a non-positive rps disables limiting.
func (s *Scheduler) SetPollRate(rps float64, burst int) {
	if rps <= 0 {
		s.limiter = nil
		return
	}

	s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// ReloadFromStore implements spec.md §4.5's reload: it stops all timers,
// closes all sessions, rebuilds the device table from list_transmitters(),
// and restarts scheduling. Historical results in each device's ring are
// preserved across reloads that keep the same transmitter id.
func (s *Scheduler) ReloadFromStore(ctx context.Context) error {
	transmitters, err := s.store.ListTransmitters(ctx)
	if err != nil {
		return err
	}

	sites, err := s.store.ListSites(ctx)
	if err != nil {
		return err
	}

	siteActive := make(map[string]bool, len(sites))
	for _, site := range sites {
		siteActive[site.ID] = site.IsActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.devices
	s.devices = make(map[string]*device, len(transmitters))

	for _, t := range transmitters {
		d, existed := old[t.ID]
		if existed {
			d.cancel()
			<-d.done
			s.sessions.Close(t.ID)
			delete(old, t.ID)
		} else {
			d = &device{ring: newResultRing()}
		}

		d.transmitter = t
		d.siteActive = siteActive[t.SiteID]
		s.devices[t.ID] = d

		s.startLocked(d)
	}

	for id, d := range old {
		d.cancel()
		<-d.done
		s.sessions.Close(id)
	}

	return nil
}

// startLocked spawns the per-device poll loop. Caller must hold s.mu.
func (s *Scheduler) startLocked(d *device) {
	ctx, cancel := context.WithCancel(s.baseCtxOrBackground())
	d.cancel = cancel
	d.done = make(chan struct{})

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(d.done)

		s.runDevice(ctx, d)
	}()
}

func (s *Scheduler) baseCtxOrBackground() context.Context {
	if s.baseCtx != nil {
		return s.baseCtx
	}

	return context.Background()
}

// Start records the process lifetime context used for future device
// goroutines spawned by ReloadFromStore, then runs an initial reload.
func (s *Scheduler) Start(ctx context.Context) error {
	s.baseCtx = ctx

	return s.ReloadFromStore(ctx)
}

// runDevice is the independent per-device timer loop (spec.md §5): no two
// concurrent polls for the same device are ever in flight, because the
// timer is only reset after the current poll resolves.
func (s *Scheduler) runDevice(ctx context.Context, d *device) {
	interval := time.Duration(d.transmitter.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = defaultPollInterval
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.tick(ctx, d)
			timer.Reset(interval)
		}
	}
}

// tick performs the gating check and, if allowed, one poll cycle.
func (s *Scheduler) tick(ctx context.Context, d *device) {
	id := d.transmitter.ID

	if !s.gateAllows(ctx, id) {
		return
	}

	result := s.poll(ctx, d)
	d.ring.push(result)

	if s.OnPoll != nil {
		s.OnPoll(result.Success)
	}

	if result.Success {
		go logAndSwallowStoreMetrics(context.WithoutCancel(ctx), s.store, id, *result.Data)
	}
}

// gateAllows re-reads transmitter and site activity flags immediately
// before the GET, closing the race between scheduling and execution
// (spec.md §4.5 Gating). A storage error defaults to allow: polling must
// never block on a transient storage fault.
func (s *Scheduler) gateAllows(ctx context.Context, transmitterID string) bool {
	t, err := s.store.GetTransmitter(ctx, transmitterID)
	if err != nil {
		log.Printf("scheduler: gating lookup failed for %s, defaulting to allow: %v", transmitterID, err)
		return true
	}

	if !t.IsActive {
		return false
	}

	site, err := s.store.GetSite(ctx, t.SiteID)
	if err != nil {
		log.Printf("scheduler: gating site lookup failed for %s, defaulting to allow: %v", transmitterID, err)
		return true
	}

	return site.IsActive
}

// poll expands the device's configured OIDs, performs one GET, and parses
// the result. Both success and failure produce a DeviceResult.
func (s *Scheduler) poll(ctx context.Context, d *device) models.DeviceResult {
	t := d.transmitter

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return models.DeviceResult{DeviceID: t.ID, Timestamp: time.Now(), Success: false, Error: err.Error()}
		}
	}

	if err := s.sessions.Open(snmpsession.Device{
		ID:        t.ID,
		Host:      t.Host,
		Port:      t.Port,
		Community: t.Community,
		Version:   t.Version,
	}); err != nil {
		return models.DeviceResult{DeviceID: t.ID, Timestamp: time.Now(), Success: false, Error: err.Error()}
	}

	oids := ExpandOIDs(t.OIDs)

	varbinds, err := s.sessions.Get(t.ID, oids)
	if err != nil {
		return models.DeviceResult{DeviceID: t.ID, Timestamp: time.Now(), Success: false, Error: err.Error()}
	}

	raw := make(map[string]models.Value, len(varbinds))
	for _, vb := range varbinds {
		raw[vb.OID] = vb.Value
	}

	data := metric.Parse(raw)

	return models.DeviceResult{DeviceID: t.ID, Timestamp: time.Now(), Success: true, Data: &data}
}

// logAndSwallowStoreMetrics writes a successful poll's data through the
// store. StoreMetrics already swallows its own I/O failures per spec.md
// §4.2; this wrapper exists so the call site reads the same way regardless.
func logAndSwallowStoreMetrics(ctx context.Context, store Store, transmitterID string, data models.TransmitterMetricData) {
	if err := store.StoreMetrics(ctx, transmitterID, data); err != nil {
		log.Printf("scheduler: store_metrics failed for %s: %v", transmitterID, err)
	}
}

// Stop cancels all pending timers, closes all sessions, and waits for
// in-flight polls to complete or hit stopTimeout (spec.md §5). It does not
// forcibly abort in-flight UDP round-trips.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for _, d := range s.devices {
		d.cancel()
	}
	s.mu.Unlock()

	waited := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(stopTimeout):
		log.Printf("scheduler: stop timed out after %s waiting for in-flight polls", stopTimeout)
	}

	s.sessions.CloseAll()
}

// Results returns up to limit results across all devices (or one device if
// deviceID is non-empty), newest first — backing GET /api/snmp/results.
func (s *Scheduler) Results(deviceID string, limit int) []models.DeviceResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deviceID != "" {
		if d, ok := s.devices[deviceID]; ok {
			return d.ring.snapshot(limit)
		}

		return nil
	}

	var all []models.DeviceResult

	for _, d := range s.devices {
		all = append(all, d.ring.snapshot(0)...)
	}

	sortResultsDesc(all)

	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	return all
}

// ClearResults empties every device's ring — backing DELETE
// /api/snmp/results.
func (s *Scheduler) ClearResults() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.devices {
		d.ring = newResultRing()
	}
}

func sortResultsDesc(results []models.DeviceResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})
}
