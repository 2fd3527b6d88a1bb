package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayFromEntry(t *testing.T) {
	r, ok := relayFromEntry(&mdns.ServiceEntry{
		Name:       "studio._syncboard._tcp.local.",
		Host:       "studio.local.",
		AddrV4:     net.IPv4(192, 168, 1, 20),
		Port:       8080,
		InfoFields: []string{"syncboard", "ws=/ws"},
	})

	require.True(t, ok)
	assert.Equal(t, "studio._syncboard._tcp.local", r.Name)
	assert.Equal(t, "studio.local", r.Host)
	assert.Equal(t, "192.168.1.20:8080", r.Addr)
	assert.Equal(t, "http://192.168.1.20:8080", r.BaseURL())
	assert.Equal(t, "ws://192.168.1.20:8080/ws", r.WebSocketURL())
}

func TestRelayFromEntrySkipsIncompleteEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
	}{
		{"nil", nil},
		{"no address", &mdns.ServiceEntry{Name: "a._syncboard._tcp.local.", Port: 8080}},
		{"no port", &mdns.ServiceEntry{Name: "a._syncboard._tcp.local.", AddrV4: net.IPv4(10, 0, 0, 1)}},
		{"other service", &mdns.ServiceEntry{Name: "printer._ipp._tcp.local.", AddrV4: net.IPv4(10, 0, 0, 1), Port: 631}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := relayFromEntry(tt.entry)
			assert.False(t, ok)
		})
	}
}

func TestCollectDeduplicatesAndSorts(t *testing.T) {
	seen := map[string]Relay{
		"10.0.0.9:8080": {Addr: "10.0.0.9:8080"},
		"10.0.0.1:8080": {Addr: "10.0.0.1:8080"},
	}

	relays := collect(seen)

	require.Len(t, relays, 2)
	assert.Equal(t, "10.0.0.1:8080", relays[0].Addr)
	assert.Equal(t, "10.0.0.9:8080", relays[1].Addr)
}

func TestShutdownNilAdvertiser(t *testing.T) {
	var a *Advertiser
	assert.NoError(t, a.Shutdown())
}
