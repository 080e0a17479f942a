package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmfleet/txmoncore/pkg/models"
	"github.com/fmfleet/txmoncore/pkg/snmpsession"
)

// fakeStore is a hand-written double for the scheduler's narrow Store
// interface — see the interface's doc comment for why it's narrow.
type fakeStore struct {
	mu sync.Mutex

	transmitters map[string]models.Transmitter
	sites        map[string]models.Site
	stored       []models.TransmitterMetricData

	listErr error
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transmitters: make(map[string]models.Transmitter),
		sites:        make(map[string]models.Site),
	}
}

func (f *fakeStore) ListTransmitters(context.Context) ([]models.Transmitter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	out := make([]models.Transmitter, 0, len(f.transmitters))
	for _, t := range f.transmitters {
		out = append(out, t)
	}

	return out, nil
}

func (f *fakeStore) ListSites(context.Context) ([]models.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Site, 0, len(f.sites))
	for _, s := range f.sites {
		out = append(out, s)
	}

	return out, nil
}

func (f *fakeStore) GetTransmitter(_ context.Context, id string) (*models.Transmitter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}

	t, ok := f.transmitters[id]
	if !ok {
		return nil, errors.New("not found")
	}

	return &t, nil
}

func (f *fakeStore) GetSite(_ context.Context, id string) (*models.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sites[id]
	if !ok {
		return nil, errors.New("not found")
	}

	return &s, nil
}

func (f *fakeStore) StoreMetrics(_ context.Context, _ string, result models.TransmitterMetricData) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stored = append(f.stored, result)

	return nil
}

func TestGateAllowsBlocksInactiveTransmitter(t *testing.T) {
	store := newFakeStore()
	store.sites["site-1"] = models.Site{ID: "site-1", IsActive: true}
	store.transmitters["tx-1"] = models.Transmitter{ID: "tx-1", SiteID: "site-1", IsActive: false}

	s := New(store, snmpsession.NewManager())

	assert.False(t, s.gateAllows(context.Background(), "tx-1"))
}

func TestGateAllowsBlocksInactiveSite(t *testing.T) {
	store := newFakeStore()
	store.sites["site-1"] = models.Site{ID: "site-1", IsActive: false}
	store.transmitters["tx-1"] = models.Transmitter{ID: "tx-1", SiteID: "site-1", IsActive: true}

	s := New(store, snmpsession.NewManager())

	assert.False(t, s.gateAllows(context.Background(), "tx-1"))
}

func TestGateAllowsPassesActiveSiteAndTransmitter(t *testing.T) {
	store := newFakeStore()
	store.sites["site-1"] = models.Site{ID: "site-1", IsActive: true}
	store.transmitters["tx-1"] = models.Transmitter{ID: "tx-1", SiteID: "site-1", IsActive: true}

	s := New(store, snmpsession.NewManager())

	assert.True(t, s.gateAllows(context.Background(), "tx-1"))
}

func TestGateAllowsDefaultsOpenOnStorageError(t *testing.T) {
	// A transient storage fault must never block polling (spec.md §4.5
	// Gating).
	store := newFakeStore()
	store.getErr = errors.New("connection reset")

	s := New(store, snmpsession.NewManager())

	assert.True(t, s.gateAllows(context.Background(), "tx-unknown"))
}

func TestReloadFromStoreBuildsDeviceTable(t *testing.T) {
	store := newFakeStore()
	store.sites["site-1"] = models.Site{ID: "site-1", IsActive: true}
	store.transmitters["tx-1"] = models.Transmitter{ID: "tx-1", SiteID: "site-1", IsActive: true, PollIntervalMS: 60_000}

	s := New(store, snmpsession.NewManager())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.mu.Lock()
	_, ok := s.devices["tx-1"]
	s.mu.Unlock()

	assert.True(t, ok)
}

func TestReloadFromStorePreservesRingAcrossReload(t *testing.T) {
	store := newFakeStore()
	store.sites["site-1"] = models.Site{ID: "site-1", IsActive: true}
	store.transmitters["tx-1"] = models.Transmitter{ID: "tx-1", SiteID: "site-1", IsActive: true, PollIntervalMS: 60_000}

	s := New(store, snmpsession.NewManager())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.mu.Lock()
	s.devices["tx-1"].ring.push(models.DeviceResult{DeviceID: "tx-1", Timestamp: time.Now(), Success: true})
	s.mu.Unlock()

	require.NoError(t, s.ReloadFromStore(context.Background()))

	s.mu.Lock()
	n := s.devices["tx-1"].ring.len()
	s.mu.Unlock()

	assert.Equal(t, 1, n)
}

func TestReloadFromStoreDropsRemovedDevice(t *testing.T) {
	store := newFakeStore()
	store.sites["site-1"] = models.Site{ID: "site-1", IsActive: true}
	store.transmitters["tx-1"] = models.Transmitter{ID: "tx-1", SiteID: "site-1", IsActive: true, PollIntervalMS: 60_000}

	s := New(store, snmpsession.NewManager())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	delete(store.transmitters, "tx-1")
	require.NoError(t, s.ReloadFromStore(context.Background()))

	s.mu.Lock()
	_, ok := s.devices["tx-1"]
	s.mu.Unlock()

	assert.False(t, ok)
}

func TestDeviceStatusUnknownDeviceReportsZeroValue(t *testing.T) {
	s := New(newFakeStore(), snmpsession.NewManager())

	got := s.DeviceStatus("nope")

	assert.Equal(t, models.DeviceStatus{}, got)
}

func TestDeviceStatusOnlineRequiresAtLeastOneSuccess(t *testing.T) {
	store := newFakeStore()
	store.sites["site-1"] = models.Site{ID: "site-1", IsActive: true}
	store.transmitters["tx-1"] = models.Transmitter{ID: "tx-1", SiteID: "site-1", IsActive: true, PollIntervalMS: 60_000}

	s := New(store, snmpsession.NewManager())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.mu.Lock()
	d := s.devices["tx-1"]
	for i := 0; i < 10; i++ {
		d.ring.push(models.DeviceResult{Success: false, Timestamp: time.Now()})
	}
	s.mu.Unlock()

	status := s.DeviceStatus("tx-1")
	assert.False(t, status.Online)
	assert.Equal(t, 10, status.ErrorCount)
}

func TestDeviceStatusOnlineUnderFailureThreshold(t *testing.T) {
	store := newFakeStore()
	store.sites["site-1"] = models.Site{ID: "site-1", IsActive: true}
	store.transmitters["tx-1"] = models.Transmitter{ID: "tx-1", SiteID: "site-1", IsActive: true, PollIntervalMS: 60_000}

	s := New(store, snmpsession.NewManager())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.mu.Lock()
	d := s.devices["tx-1"]
	for i := 0; i < 4; i++ {
		d.ring.push(models.DeviceResult{Success: false, Timestamp: time.Now()})
	}
	for i := 0; i < 6; i++ {
		d.ring.push(models.DeviceResult{Success: true, Timestamp: time.Now()})
	}
	s.mu.Unlock()

	status := s.DeviceStatus("tx-1")
	assert.True(t, status.Online)
}

func TestSetPollRateDisablesLimiterOnNonPositive(t *testing.T) {
	s := New(newFakeStore(), snmpsession.NewManager())

	s.SetPollRate(5, 2)
	assert.NotNil(t, s.limiter)

	s.SetPollRate(0, 2)
	assert.Nil(t, s.limiter)
}

func TestTickSkipsOnPollCallbackWhenGated(t *testing.T) {
	// tick() short-circuits before any SNMP I/O when gating denies the
	// poll, so this exercises the OnPoll wiring without a real network
	// round-trip.
	store := newFakeStore()
	store.sites["site-1"] = models.Site{ID: "site-1", IsActive: false}
	store.transmitters["tx-1"] = models.Transmitter{ID: "tx-1", SiteID: "site-1", IsActive: true, PollIntervalMS: 60_000}

	s := New(store, snmpsession.NewManager())

	called := 0
	s.OnPoll = func(bool) { called++ }

	d := &device{transmitter: store.transmitters["tx-1"], ring: newResultRing()}
	s.tick(context.Background(), d)

	assert.Zero(t, called, "OnPoll must not fire when gating denies the poll")
}
