package discover

import (
	"context"
	"log"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
)

// Discoverer supplies device description locations. An SSDP search would
// implement this, as does Static for known addresses.
type Discoverer interface {
	Locations(ctx context.Context) ([]string, error)
}

// Static is a Discoverer over a fixed list of description URLs, typically
// from configuration.
type Static struct {
	urls []string
}

func NewStatic(urls ...string) *Static {
	return &Static{urls: urls}
}

func (s *Static) Locations(_ context.Context) ([]string, error) {
	return s.urls, nil
}

// Table keeps the devices seen by a Discoverer. Entries expire after the TTL
// so devices that dropped off the network disappear on their own.
type Table struct {
	discoverer Discoverer
	cache      *ttlcache.Cache[string, *Device]
}

func NewTable(d Discoverer, ttl time.Duration) *Table {
	t := &Table{
		discoverer: d,
		cache: ttlcache.New(
			ttlcache.WithTTL[string, *Device](ttl),
		),
	}

	go t.cache.Start()

	return t
}

// Refresh asks the Discoverer for locations and fetches each description.
// Unreachable devices are logged and skipped, they simply age out of the
// table if they stay gone.
func (t *Table) Refresh(ctx context.Context) error {
	locations, err := t.discoverer.Locations(ctx)
	if err != nil {
		return errors.Wrap(err, "list device locations")
	}

	for _, location := range locations {
		device, err := Fetch(ctx, location)
		if err != nil {
			log.Printf("Failed to fetch %s: %v\n", location, err)
			continue
		}

		t.cache.Set(device.UDN, device, ttlcache.DefaultTTL)
	}

	return nil
}

// Get looks a device up by its UDN.
func (t *Table) Get(udn string) (*Device, bool) {
	item := t.cache.Get(udn)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Devices lists everything currently in the table.
func (t *Table) Devices() []*Device {
	items := t.cache.Items()
	devices := make([]*Device, 0, len(items))
	for _, item := range items {
		devices = append(devices, item.Value())
	}
	return devices
}

func (t *Table) Stop() {
	t.cache.Stop()
}
