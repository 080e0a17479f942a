// Package snmpsession pkg/snmpsession/session.go owns one long-lived UDP
// session per device and performs GET/WALK against it, following the
// connect/get/close shape of a gosnmp client wrapper: a mutex-guarded
// gosnmp.GoSNMP handle with lazy (re)connect on failure.
package snmpsession

import (
	"fmt"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/fmfleet/txmoncore/pkg/models"
)

const (
	defaultRetries    = 3
	defaultTimeout    = 5 * time.Second
	defaultWalkChunk  = 200
)

// Manager owns one gosnmp session per device, keyed by device ID.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu        sync.Mutex
	device    Device
	client    *gosnmp.GoSNMP
	connected bool
	lastErr   error
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*session)}
}

// Open creates (or replaces, if connection parameters changed) the session
// for a device. It does not connect eagerly; Get connects lazily on first
// use, matching the teacher's "error handler records failure, doesn't tear
// down session" contract — a session that fails to connect is retried on
// the next poll rather than treated as fatal here.
func (m *Manager) Open(device Device) error {
	if device.Host == "" {
		return ErrHostRequired
	}

	client, err := newGoSNMPClient(device)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[device.ID]; ok && existing.device.ConnParamsEqual(device) {
		return nil // no connection-affecting change; keep the live session
	}

	if existing, ok := m.sessions[device.ID]; ok {
		existing.close()
	}

	m.sessions[device.ID] = &session{device: device, client: client}

	return nil
}

// Close releases the session for a device, if one is open.
func (m *Manager) Close(deviceID string) error {
	m.mu.Lock()
	s, ok := m.sessions[deviceID]
	delete(m.sessions, deviceID)
	m.mu.Unlock()

	if !ok {
		return nil
	}

	return s.close()
}

// CloseAll releases every open session (used by scheduler.Stop/reload).
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.close()
	}
}

func (m *Manager) get(deviceID string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[deviceID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return s, nil
}

// Get performs a single GET for the given OIDs against an already-open
// device session, filtering out varbinds whose type indicates a
// protocol-level "no such object/instance" so they never overwrite a
// successfully resolved sibling (spec.md §4.4).
func (m *Manager) Get(deviceID string, oids []string) ([]models.Varbind, error) {
	s, err := m.get(deviceID)
	if err != nil {
		return nil, err
	}

	return s.get(oids)
}

// Walk enumerates a subtree from root (a GETNEXT walk for v1, a GETBULK walk
// for v2c) for template discovery (not used on the regular polling path).
// chunk does not split the walk into requests: it only sets the safety bound
// of chunk*1000 varbinds at which the walk aborts; a non-positive chunk uses
// defaultWalkChunk.
func (m *Manager) Walk(deviceID, root string, chunk int) ([]models.Varbind, error) {
	s, err := m.get(deviceID)
	if err != nil {
		return nil, err
	}

	if chunk <= 0 {
		chunk = defaultWalkChunk
	}

	return s.walk(root, chunk)
}

// Test performs a one-shot open+GET+close cycle for connectivity checks.
func Test(device Device, oids []string) (map[string]models.Value, error) {
	client, err := newGoSNMPClient(device)
	if err != nil {
		return nil, err
	}

	s := &session{device: device, client: client}
	defer s.close()

	varbinds, err := s.get(oids)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.Value, len(varbinds))
	for _, vb := range varbinds {
		out[vb.OID] = vb.Value
	}

	return out, nil
}

func newGoSNMPClient(device Device) (*gosnmp.GoSNMP, error) {
	port := device.Port
	if port == 0 {
		port = 161
	}

	client := &gosnmp.GoSNMP{
		Target:             device.Host,
		Port:               uint16(port),
		Community:          device.Community,
		Timeout:            defaultTimeout,
		Retries:            defaultRetries,
		ExponentialTimeout: true,
		MaxOids:            gosnmp.MaxOids,
	}

	switch device.Version {
	case models.SNMPv1:
		client.Version = gosnmp.Version1
	case models.SNMPv2c:
		client.Version = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, device.Version)
	}

	return client, nil
}

func (s *session) ensureConnected() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	if err := s.client.Connect(); err != nil {
		s.lastErr = fmt.Errorf("%w: %w", ErrConnect, err)
		return s.lastErr
	}

	s.connected = true

	return nil
}

func (s *session) get(oids []string) ([]models.Varbind, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var out []models.Varbind

	for i := 0; i < len(oids); i += gosnmp.MaxOids {
		end := i + gosnmp.MaxOids
		if end > len(oids) {
			end = len(oids)
		}

		result, err := s.client.Get(oids[i:end])
		if err != nil {
			s.mu.Lock()
			s.connected = false
			s.lastErr = fmt.Errorf("%w: %w", ErrGet, err)
			s.mu.Unlock()

			return nil, s.lastErr
		}

		for _, pdu := range result.Variables {
			if isNoSuchType(pdu.Type) {
				continue
			}

			val, err := convertPDU(pdu)
			if err != nil {
				continue
			}

			out = append(out, models.Varbind{OID: pdu.Name, Type: pdu.Type.String(), Value: val})
		}
	}

	return out, nil
}

func (s *session) walk(root string, chunk int) ([]models.Varbind, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var (
		out      []models.Varbind
		walkFunc func(string, gosnmp.WalkFunc) error
	)

	if s.client.Version == gosnmp.Version1 {
		walkFunc = s.client.Walk
	} else {
		walkFunc = s.client.BulkWalk
	}

	err := walkFunc(root, func(pdu gosnmp.SnmpPDU) error {
		if isNoSuchType(pdu.Type) {
			return nil
		}

		val, err := convertPDU(pdu)
		if err != nil {
			return nil
		}

		out = append(out, models.Varbind{OID: pdu.Name, Type: pdu.Type.String(), Value: val})

		if len(out) >= chunk*1000 { // guard against runaway subtrees
			return fmt.Errorf("snmpsession: walk aborted, exceeded safety bound")
		}

		return nil
	})
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrWalk, err)
	}

	return out, nil
}

func (s *session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.connected = false

	if s.client.Conn == nil {
		return nil
	}

	return s.client.Conn.Close()
}

func isNoSuchType(t gosnmp.Asn1BER) bool {
	switch t {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
		return true
	default:
		return false
	}
}

func convertPDU(pdu gosnmp.SnmpPDU) (models.Value, error) {
	switch pdu.Type {
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			return models.BytesValue(b), nil
		}

		return models.StringValue(fmt.Sprint(pdu.Value)), nil
	case gosnmp.Integer:
		return models.IntValue(int64(gosnmp.ToBigInt(pdu.Value).Int64())), nil
	case gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks, gosnmp.Uinteger32:
		return models.IntValue(gosnmp.ToBigInt(pdu.Value).Int64()), nil
	case gosnmp.Counter64:
		return models.IntValue(gosnmp.ToBigInt(pdu.Value).Int64()), nil
	case gosnmp.IPAddress:
		return models.StringValue(fmt.Sprint(pdu.Value)), nil
	case gosnmp.ObjectIdentifier:
		return models.StringValue(fmt.Sprint(pdu.Value)), nil
	default:
		return models.Value{}, fmt.Errorf("%w: %v", ErrConvert, pdu.Type)
	}
}
