package mib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripInstance(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1.3.6.1.2.1.1.3.0", "1.3.6.1.2.1.1.3"},
		{"1.3.6.1.4.1.31946.4.2.6.10.1.4", "1.3.6.1.4.1.31946.4.2.6.10.1"},
		{"1.3.6.1.4.1.31946.3.1.7", "1.3.6.1.4.1.31946.3.1"},
		{"sysDescr", "sysDescr"},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, StripInstance(c.in), c.in)
	}
}

func TestMapperLoadAndMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "elenos.mib")
	content := "# comment\n1.3.6.1.4.1.31946.4.2.6.10.1\tforward_power\n\n1.3.6.1.4.1.31946.4.2.6.10.2\treflected_power\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m := New()
	require.NoError(t, m.Load(path))

	name, ok := m.Map("1.3.6.1.4.1.31946.4.2.6.10.1.0")
	assert.True(t, ok)
	assert.Equal(t, "forward_power", name)

	name, ok = m.Map("1.3.6.1.4.1.31946.4.2.6.10.2.4")
	assert.True(t, ok)
	assert.Equal(t, "reflected_power", name)

	_, ok = m.Map("1.2.3.4.5")
	assert.False(t, ok)
}
