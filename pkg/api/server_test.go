package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/fmfleet/txmoncore/pkg/db"
	"github.com/fmfleet/txmoncore/pkg/models"
	"github.com/fmfleet/txmoncore/pkg/snmpsession"
)

// decodeBody unmarshals a recorded JSON response body into dst.
func decodeBody(rec *httptest.ResponseRecorder, dst interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), dst)
}

// fakeStore is a minimal in-memory db.Store for exercising the REST layer
// without a database, mirroring the narrow in-package fakes already used by
// pkg/scheduler and pkg/trap.
type fakeStore struct {
	mu           sync.Mutex
	sites        map[string]models.Site
	transmitters map[string]models.Transmitter
	metrics      map[string]models.TransmitterMetric
	traps        []models.SnmpTrap
	nextID       int
	notifier     db.ReloadNotifier
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sites:        make(map[string]models.Site),
		transmitters: make(map[string]models.Transmitter),
		metrics:      make(map[string]models.TransmitterMetric),
	}
}

func (f *fakeStore) genID() string {
	f.nextID++
	return "id-" + strconv.Itoa(f.nextID)
}

func (f *fakeStore) Close() error                                  { return nil }
func (f *fakeStore) InitializeSchema(context.Context) error        { return nil }
func (f *fakeStore) SetReloadNotifier(fn db.ReloadNotifier)        { f.notifier = fn }

func (f *fakeStore) GetSite(_ context.Context, id string) (*models.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sites[id]
	if !ok {
		return nil, db.ErrSiteNotFound
	}

	return &s, nil
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

func (f *fakeStore) CreateSite(_ context.Context, site *models.Site) (*models.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if site.ID == "" {
		site.ID = f.genID()
	}

	f.sites[site.ID] = *site

	out := *site

	return &out, nil
}

func (f *fakeStore) UpdateSite(_ context.Context, id string, patch map[string]interface{}) (*models.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sites[id]
	if !ok {
		return nil, db.ErrSiteNotFound
	}

	if name, ok := patch["name"].(string); ok {
		s.Name = name
	}

	if active, ok := patch["is_active"].(bool); ok {
		s.IsActive = active
	}

	f.sites[id] = s

	out := s

	return &out, nil
}

func (f *fakeStore) DeleteSite(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.sites[id]; !ok {
		return false, nil
	}

	delete(f.sites, id)

	return true, nil
}

func (f *fakeStore) GetTransmitter(_ context.Context, id string) (*models.Transmitter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.transmitters[id]
	if !ok {
		return nil, db.ErrTransmitterNotFound
	}

	return &t, nil
}

func (f *fakeStore) ListTransmitters(context.Context) ([]models.Transmitter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Transmitter, 0, len(f.transmitters))
	for _, t := range f.transmitters {
		out = append(out, t)
	}

	return out, nil
}

func (f *fakeStore) UpsertTransmitter(_ context.Context, t *models.Transmitter) (*models.Transmitter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t.SiteID == "" {
		return nil, db.ErrSiteRequired
	}

	if _, ok := f.sites[t.SiteID]; !ok {
		return nil, db.ErrSiteRequired
	}

	if t.ID == "" {
		t.ID = f.genID()
	}

	f.transmitters[t.ID] = *t

	out := *t

	return &out, nil
}

func (f *fakeStore) PatchTransmitter(_ context.Context, id string, patch map[string]interface{}) (*models.Transmitter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.transmitters[id]
	if !ok {
		return nil, db.ErrTransmitterNotFound
	}

	if siteID, ok := patch["site_id"].(string); ok {
		if siteID == "" {
			return nil, db.ErrSiteRequired
		}

		if _, ok := f.sites[siteID]; !ok {
			return nil, db.ErrSiteRequired
		}

		t.SiteID = siteID
	}

	if v, ok := patch["name"].(string); ok {
		t.Name = v
	}

	if v, ok := patch["display_label"].(string); ok {
		t.Label = v
	}

	if v, ok := patch["display_order"].(int); ok {
		t.DisplayOrder = v
	} else if v, ok := patch["display_order"].(float64); ok {
		t.DisplayOrder = int(v)
	}

	if v, ok := patch["nominal_frequency"].(float64); ok {
		t.NominalFreqMHz = v
	}

	if v, ok := patch["nominal_power"].(float64); ok {
		t.NominalPowerW = v
	}

	if v, ok := patch["status"].(string); ok {
		t.Status = models.TransmitterStatus(v)
	}

	if v, ok := patch["vendor"].(string); ok {
		t.Vendor = v
	}

	if v, ok := patch["model"].(string); ok {
		t.Model = v
	}

	if v, ok := patch["snmp_host"].(string); ok {
		t.Host = v
	}

	if v, ok := patch["snmp_port"].(int); ok {
		t.Port = v
	} else if v, ok := patch["snmp_port"].(float64); ok {
		t.Port = int(v)
	}

	if v, ok := patch["snmp_community"].(string); ok {
		t.Community = v
	}

	if v, ok := patch["snmp_version"].(int); ok {
		t.Version = models.SNMPVersion(v)
	} else if v, ok := patch["snmp_version"].(float64); ok {
		t.Version = models.SNMPVersion(v)
	}

	if v, ok := patch["oids"].([]string); ok {
		t.OIDs = v
	} else if v, ok := patch["oids"].([]interface{}); ok {
		oids := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				oids = append(oids, s)
			}
		}
		t.OIDs = oids
	}

	if v, ok := patch["poll_interval"].(int64); ok {
		t.PollIntervalMS = v
	} else if v, ok := patch["poll_interval"].(float64); ok {
		t.PollIntervalMS = int64(v)
	}

	if v, ok := patch["is_active"].(bool); ok {
		t.IsActive = v
	}

	f.transmitters[id] = t

	out := t

	return &out, nil
}

func (f *fakeStore) DeleteTransmitter(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.transmitters[id]; !ok {
		return false, nil
	}

	delete(f.transmitters, id)

	return true, nil
}

func (f *fakeStore) StoreMetrics(_ context.Context, id string, data models.TransmitterMetricData) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.metrics[id] = models.TransmitterMetric{TransmitterID: id, Timestamp: time.Now(), Status: data.Status}

	return nil
}

func (f *fakeStore) GetLatestMetrics(_ context.Context, id string) (*models.TransmitterMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.metrics[id]
	if !ok {
		return nil, nil
	}

	return &m, nil
}

func (f *fakeStore) GetMetricsRange(context.Context, string, time.Time, time.Time, int) ([]models.TransmitterMetric, error) {
	return nil, nil
}

func (f *fakeStore) StoreTrap(_ context.Context, trap *models.SnmpTrap) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.traps = append(f.traps, *trap)

	return nil
}

func (f *fakeStore) GetLatestTraps(context.Context, db.TrapFilter, int) ([]models.SnmpTrap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.traps, nil
}

func (f *fakeStore) GetTrapsRange(context.Context, time.Time, time.Time, db.TrapFilter, int) ([]models.SnmpTrap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.traps, nil
}

func (f *fakeStore) PruneOldData(context.Context, time.Duration) error { return nil }

// fakePoller implements Poller for handler tests.
type fakePoller struct {
	mu        sync.Mutex
	startErr  error
	startCalls int
	stopCalls  int
	results    []models.DeviceResult
	statuses   map[string]models.DeviceStatus
}

func (p *fakePoller) Start(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startCalls++

	return p.startErr
}

func (p *fakePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopCalls++
}

func (p *fakePoller) Results(deviceID string, limit int) []models.DeviceResult {
	if deviceID == "" {
		if limit > 0 && limit < len(p.results) {
			return p.results[:limit]
		}

		return p.results
	}

	var out []models.DeviceResult

	for _, r := range p.results {
		if r.DeviceID == deviceID {
			out = append(out, r)
		}
	}

	return out
}

func (p *fakePoller) ClearResults() { p.results = nil }

func (p *fakePoller) DeviceStatus(id string) models.DeviceStatus {
	if p.statuses == nil {
		return models.DeviceStatus{}
	}

	return p.statuses[id]
}

func newTestServer() (*Server, *fakeStore, *fakePoller) {
	store := newFakeStore()
	poller := &fakePoller{}
	s := New(store, poller, snmpsession.NewManager(), nil, "")

	return s, store, poller
}

