package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// ServiceType is the mDNS service a relay advertises
const ServiceType = "_syncboard._tcp"

// DefaultLookupTimeout bounds one LAN query
const DefaultLookupTimeout = 2 * time.Second

// Advertiser announces a running relay on the local network
type Advertiser struct {
	server *mdns.Server
}

// Advertise starts answering mDNS queries for ServiceType on port. An empty instance
// name defaults to the hostname.
func Advertise(instance string, port int, info ...string) (*Advertiser, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}
	if len(info) == 0 {
		info = []string{"syncboard", "ws=/ws"}
	}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}

	log.Info().Str("instance", instance).Int("port", port).Msg("advertising relay via mDNS")
	return &Advertiser{server: server}, nil
}

// Shutdown stops answering queries
func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Relay is a relay instance found on the LAN
type Relay struct {
	Name string
	Host string
	Addr string
	Info []string
}

// BaseURL is the relay's HTTP origin
func (r Relay) BaseURL() string {
	return "http://" + r.Addr
}

// WebSocketURL is the relay's real-time endpoint
func (r Relay) WebSocketURL() string {
	return "ws://" + r.Addr + "/ws"
}

// Lookup queries the LAN for relays until timeout or ctx is done. Relays are returned
// sorted by address with duplicates removed.
func Lookup(ctx context.Context, timeout time.Duration) ([]Relay, error) {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	errCh := make(chan error, 1)
	go func() {
		errCh <- mdns.Query(params)
		close(entries)
	}()

	seen := make(map[string]Relay)
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				if err := <-errCh; err != nil {
					return nil, fmt.Errorf("mdns query: %w", err)
				}
				return collect(seen), nil
			}
			if r, ok := relayFromEntry(e); ok {
				seen[r.Addr] = r
			}
		case <-ctx.Done():
			go func() {
				for range entries {
				}
			}()
			return collect(seen), ctx.Err()
		}
	}
}

// relayFromEntry converts a service entry; entries without an IPv4 address or port
// are skipped
func relayFromEntry(e *mdns.ServiceEntry) (Relay, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Relay{}, false
	}
	if !strings.Contains(e.Name, ServiceType) {
		return Relay{}, false
	}
	return Relay{
		Name: strings.TrimSuffix(e.Name, "."),
		Host: strings.TrimSuffix(e.Host, "."),
		Addr: net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port)),
		Info: e.InfoFields,
	}, true
}

func collect(seen map[string]Relay) []Relay {
	out := make([]Relay, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}
