// Package mib pkg/mib/mapper.go resolves numeric OIDs to symbolic names
// loaded from local MIB mapping files. Resolution is pure lookup: the
// mapper performs no I/O after Load.
package mib

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Mapper holds a numeric-OID-to-symbolic-name table.
type Mapper struct {
	names map[string]string
}

// New returns an empty Mapper. Use Load to populate it.
func New() *Mapper {
	return &Mapper{names: make(map[string]string)}
}

// Load reads one or more mapping files and merges their entries into the
// mapper. Each file holds one "<oid><whitespace><name>" pair per line;
// blank lines and lines starting with '#' are ignored. Later files win on
// conflicting OIDs.
func (m *Mapper) Load(paths ...string) error {
	for _, path := range paths {
		if err := m.loadFile(path); err != nil {
			return fmt.Errorf("mib: load %s: %w", path, err)
		}
	}

	return nil
}

func (m *Mapper) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		m.names[fields[0]] = fields[1]
	}

	return scanner.Err()
}

// Map looks up the symbolic name for oid, trying the stripped form if the
// exact OID is not known. It returns ("", false) for unknown OIDs.
func (m *Mapper) Map(oid string) (string, bool) {
	if name, ok := m.names[oid]; ok {
		return name, true
	}

	stripped := StripInstance(oid)
	if stripped == oid {
		return "", false
	}

	name, ok := m.names[stripped]
	return name, ok
}

// StripInstance removes a single trailing numeric component representing an
// instance index (including the scalar ".0"). Only the last numeric segment
// is stripped; a non-numeric trailing segment is left intact.
func StripInstance(oid string) string {
	idx := strings.LastIndex(oid, ".")
	if idx < 0 || idx == len(oid)-1 {
		return oid
	}

	last := oid[idx+1:]
	if _, err := strconv.Atoi(last); err != nil {
		return oid
	}

	return oid[:idx]
}
