// Package wemo is a SOAP action-invocation client for Belkin WeMo smart
// plugs. It knows the devices' service catalog, builds and parses the SOAP
// envelopes, and handles timeouts and retries; what to do with the results is
// up to the caller.
package wemo

import (
	"context"

	"wemo/config"
	"wemo/discover"
	"wemo/soap"
	"wemo/upnp"
)

// Client bundles the action invoker with a table of discovered devices.
type Client struct {
	Invoker *upnp.Client
	Devices *discover.Table
}

// New wires a Client from config. The configured device URLs act as the
// static discoverer, pass a different one to NewWithDiscoverer for SSDP or
// similar.
func New(cfg config.Config) *Client {
	urls := make([]string, 0, len(cfg.Devices))
	for _, url := range cfg.Devices {
		urls = append(urls, url)
	}

	return NewWithDiscoverer(cfg, discover.NewStatic(urls...))
}

func NewWithDiscoverer(cfg config.Config, d discover.Discoverer) *Client {
	opts := []upnp.Option{
		upnp.WithTimeout(cfg.Transport.Timeout),
		upnp.WithRetries(cfg.Retry.Attempts),
		upnp.WithDecodeRetries(cfg.Retry.DecodeAttempts),
		upnp.WithVerbose(cfg.Verbose),
	}

	switch cfg.Retry.Backoff {
	case "exponential":
		opts = append(opts, upnp.WithExponentialBackOff(cfg.Retry.Interval))
	default:
		opts = append(opts, upnp.WithConstantBackOff(cfg.Retry.Interval))
	}

	return &Client{
		Invoker: upnp.NewClient(opts...),
		Devices: discover.NewTable(d, cfg.Discovery.TTL),
	}
}

// Invoke runs an action on a device from the table, looked up by UDN.
func (c *Client) Invoke(ctx context.Context, udn string, serviceName string, actionName string, args map[string]string) (*soap.Result, error) {
	device, ok := c.Devices.Get(udn)
	if !ok {
		return nil, &upnp.InvalidRequestError{Reason: "unknown device " + udn}
	}

	return device.Invoke(ctx, c.Invoker, serviceName, actionName, args)
}

func (c *Client) Close() {
	c.Devices.Stop()
}
