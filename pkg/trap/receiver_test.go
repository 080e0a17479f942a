package trap

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmfleet/txmoncore/pkg/models"
)

func buildV2cPacket() *gosnmp.SnmpPacket {
	return &gosnmp.SnmpPacket{
		Version: gosnmp.Version2c,
		Variables: []gosnmp.SnmpPDU{
			pdu("1.3.6.1.2.1.1.3.0", gosnmp.TimeTicks, uint32(0)),
			pdu("1.3.6.1.6.3.1.1.4.1.0", gosnmp.ObjectIdentifier, "1.3.6.1.6.3.1.1.5.1"),
			pdu("1.1", gosnmp.Integer, 7),
		},
	}
}

type fakeTrapStore struct {
	mu           sync.Mutex
	transmitters []models.Transmitter
	stored       []models.SnmpTrap
}

func (f *fakeTrapStore) ListTransmitters(context.Context) ([]models.Transmitter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.transmitters, nil
}

func (f *fakeTrapStore) StoreTrap(_ context.Context, trap *models.SnmpTrap) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stored = append(f.stored, *trap)

	return nil
}

// occupyPort binds a UDP socket on an ephemeral high port and returns its
// port plus a closer, simulating an EADDRINUSE collision on the receiver's
// configured primary port without needing privileged access.
func occupyPort(t *testing.T) (int, func()) {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)

	port := conn.LocalAddr().(*net.UDPAddr).Port

	return port, func() { _ = conn.Close() }
}

func freePort(t *testing.T) int {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)

	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())

	return port
}

func TestResolveBindAddrFallsBackOnAddrInUseWithAutoFallback(t *testing.T) {
	primary, closePrimary := occupyPort(t)
	defer closePrimary()

	fallback := freePort(t)

	r := New(Config{
		PrimaryPort:  primary,
		FallbackPort: fallback,
		BindAddr:     "127.0.0.1",
		AutoFallback: true,
	}, &fakeTrapStore{})

	addr, err := r.resolveBindAddr()
	require.NoError(t, err)
	assert.Equal(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(fallback)), addr)
}

func TestResolveBindAddrRefusesWithoutConfirmationNonInteractive(t *testing.T) {
	primary, closePrimary := occupyPort(t)
	defer closePrimary()

	r := New(Config{
		PrimaryPort:       primary,
		FallbackPort:      freePort(t),
		BindAddr:          "127.0.0.1",
		RequirePrivileged: true,
		AutoFallback:      false,
	}, &fakeTrapStore{})

	// Test binaries run with stdin not attached to a terminal, so the
	// confirmation prompt always resolves to "no".
	_, err := r.resolveBindAddr()
	assert.Error(t, err)
}

func TestResolveBindAddrUsesPrimaryWhenFree(t *testing.T) {
	primary := freePort(t)

	r := New(Config{
		PrimaryPort:  primary,
		FallbackPort: freePort(t),
		BindAddr:     "127.0.0.1",
	}, &fakeTrapStore{})

	addr, err := r.resolveBindAddr()
	require.NoError(t, err)
	assert.Equal(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(primary)), addr)
}

func TestHandleTrapAttributesAndStores(t *testing.T) {
	store := &fakeTrapStore{transmitters: []models.Transmitter{
		{ID: "tx-1", SiteID: "site-1", Host: "192.168.1.50"},
	}}

	r := New(Config{}, store)

	pkt := buildV2cPacket()
	done := make(chan struct{})

	// storeAttributed is normally invoked asynchronously by handleTrap; call
	// it directly here (synchronously) to make the assertion deterministic.
	go func() {
		trap, err := Normalize(pkt, testAddr)
		require.NoError(t, err)
		r.storeAttributed(trap)
		close(done)
	}()
	<-done

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.stored, 1)
	require.NotNil(t, store.stored[0].TransmitterID)
	assert.Equal(t, "tx-1", *store.stored[0].TransmitterID)
}
