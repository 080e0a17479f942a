package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fmfleet/txmoncore/pkg/mib"
	"github.com/fmfleet/txmoncore/pkg/models"
	"github.com/fmfleet/txmoncore/pkg/snmpsession"
)

// connProbe is the shared request shape of /api/snmp/test and /api/snmp/walk:
// enough of the connection tuple to open a transient session without
// requiring the target to already be a registered transmitter.
type connProbe struct {
	Host      string             `json:"host"`
	Port      int                `json:"port"`
	Community string             `json:"community"`
	Version   models.SNMPVersion `json:"version"`
	OIDs      []string           `json:"oids,omitempty"`
	Root      string             `json:"root,omitempty"`
}

func (p connProbe) device() snmpsession.Device {
	port := p.Port
	if port == 0 {
		port = 161
	}

	community := p.Community
	if community == "" {
		community = "public"
	}

	return snmpsession.Device{
		ID:        "probe:" + p.Host,
		Host:      p.Host,
		Port:      port,
		Community: community,
		Version:   p.Version,
	}
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var probe connProbe
	if err := decodeJSON(r, &probe); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if probe.Host == "" {
		writeError(w, http.StatusBadRequest, errHostRequired)
		return
	}

	values, err := snmpsession.Test(probe.device(), probe.OIDs)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "values": values})
}

var errHostRequired = fmt.Errorf("api: host is required")

// walkTemplate is the generated OID template persisted under the assets
// directory after a successful (or dump-recovered) walk: one entry per
// distinct base OID discovered, annotated with a symbolic name when the MIB
// mapper resolves one.
type walkTemplate struct {
	Host      string           `json:"host"`
	Root      string           `json:"root"`
	Source    string           `json:"source"` // "live" or "dump"
	Entries   []templateEntry  `json:"entries"`
	CreatedAt time.Time        `json:"createdAt"`
}

type templateEntry struct {
	BaseOID string `json:"baseOid"`
	Name    string `json:"name,omitempty"`
	Sample  string `json:"sample"`
}

func (s *Server) handleWalk(w http.ResponseWriter, r *http.Request) {
	var probe connProbe
	if err := decodeJSON(r, &probe); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if probe.Host == "" {
		writeError(w, http.StatusBadRequest, errHostRequired)
		return
	}

	root := probe.Root
	if root == "" {
		root = "1.3.6.1.4.1"
	}

	device := probe.device()

	varbinds, source, err := s.walkOrFallback(device, root)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	tmpl := s.buildTemplate(probe.Host, root, source, varbinds)

	path, err := s.persistTemplate(tmpl)
	if err != nil {
		// The walk itself succeeded; a failure to persist the template is
		// reported but doesn't turn the whole request into an error.
		writeJSON(w, http.StatusOK, map[string]interface{}{"template": tmpl, "persistError": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"template": tmpl, "path": path})
}

// walkOrFallback attempts a live walk against device; on any transport
// failure it falls back to a local dump file matching the host, per
// spec.md's "walk, on failure fall back to parsing a local walk dump file".
func (s *Server) walkOrFallback(device snmpsession.Device, root string) ([]models.Varbind, string, error) {
	if err := s.sessions.Open(device); err == nil {
		if varbinds, walkErr := s.sessions.Walk(device.ID, root, 0); walkErr == nil {
			return varbinds, "live", nil
		}
	}

	varbinds, err := s.loadDumpFile(device.Host, root)
	if err != nil {
		return nil, "", fmt.Errorf("walk: live probe failed and no usable dump for %s: %w", device.Host, err)
	}

	return varbinds, "dump", nil
}

// loadDumpFile reads attached_assets/dumps/<host>.txt, one
// "<oid> <type> <value>" triple per line (blank lines and '#' comments
// ignored, as in the MIB mapper's files, which hold "<oid> <name>" pairs
// instead).
func (s *Server) loadDumpFile(host, root string) ([]models.Varbind, error) {
	path := filepath.Join(s.assetsDir, "dumps", sanitizeHost(host)+".txt")

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []models.Varbind

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 3 {
			continue
		}

		oid, typ, raw := fields[0], fields[1], fields[2]
		if root != "" && !strings.HasPrefix(oid, root) {
			continue
		}

		out = append(out, models.Varbind{OID: oid, Type: typ, Value: dumpValue(typ, raw)})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("walk: dump file %s matched no entries under %s", path, root)
	}

	return out, nil
}

func dumpValue(typ, raw string) models.Value {
	switch typ {
	case "Integer", "Counter32", "Gauge32", "TimeTicks", "Counter64":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return models.IntValue(n)
		}

		return models.StringValue(raw)
	case "OctetString":
		return models.BytesValue([]byte(raw))
	default:
		return models.StringValue(raw)
	}
}

// buildTemplate collapses walked varbinds down to one entry per distinct
// base OID (instance index stripped), annotated with a symbolic name when
// the MIB mapper knows one.
func (s *Server) buildTemplate(host, root, source string, varbinds []models.Varbind) walkTemplate {
	seen := make(map[string]bool)

	tmpl := walkTemplate{Host: host, Root: root, Source: source, CreatedAt: time.Now().UTC()}

	for _, vb := range varbinds {
		base := mib.StripInstance(vb.OID)
		if seen[base] {
			continue
		}

		seen[base] = true

		entry := templateEntry{BaseOID: base, Sample: vb.Value.String()}

		if s.mapper != nil {
			if name, ok := s.mapper.Map(base); ok {
				entry.Name = name
			}
		}

		tmpl.Entries = append(tmpl.Entries, entry)
	}

	return tmpl
}

// persistTemplate writes tmpl as JSON under <assetsDir>/templates, named for
// the host and generation time so repeated walks don't clobber each other.
func (s *Server) persistTemplate(tmpl walkTemplate) (string, error) {
	dir := filepath.Join(s.assetsDir, "templates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%d.json", sanitizeHost(tmpl.Host), tmpl.CreatedAt.Unix())
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	if err := enc.Encode(tmpl); err != nil {
		return "", err
	}

	return path, nil
}

func sanitizeHost(host string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, host)
}
