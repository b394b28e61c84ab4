package discover

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"wemo/soap"
	"wemo/upnp"
)

// Service is one service entry from a device description, with its URLs
// resolved against the description location.
type Service struct {
	Type        string
	ID          string
	ControlURL  string
	EventSubURL string
	SCPDURL     string
}

// Device is the identity a WeMo device publishes in its setup.xml, plus the
// control endpoints for its services keyed by short name.
type Device struct {
	FriendlyName    string
	Manufacturer    string
	ModelName       string
	ModelNumber     string
	SerialNumber    string
	UDN             string
	MACAddress      string
	FirmwareVersion string

	// Location is the description URL the device was fetched from.
	Location string
	Services map[string]Service
	LastSeen time.Time
}

// Invoke runs an action against the device, resolving the control URL for the
// named service.
func (d *Device) Invoke(ctx context.Context, c *upnp.Client, serviceName string, actionName string, args map[string]string) (*soap.Result, error) {
	svc, ok := d.Services[serviceName]
	if !ok {
		return nil, &upnp.InvalidRequestError{Reason: fmt.Sprintf("device %q does not expose service %q", d.FriendlyName, serviceName)}
	}

	return c.Invoke(ctx, svc.ControlURL, serviceName, actionName, args)
}

// description mirrors the relevant parts of a UPnP device description. The
// macAddress and firmwareVersion elements are Belkin extensions.
type description struct {
	XMLName xml.Name `xml:"root"`
	Device  struct {
		DeviceType      string `xml:"deviceType"`
		FriendlyName    string `xml:"friendlyName"`
		Manufacturer    string `xml:"manufacturer"`
		ModelName       string `xml:"modelName"`
		ModelNumber     string `xml:"modelNumber"`
		SerialNumber    string `xml:"serialNumber"`
		UDN             string `xml:"UDN"`
		MACAddress      string `xml:"macAddress"`
		FirmwareVersion string `xml:"firmwareVersion"`
		ServiceList     struct {
			Services []struct {
				ServiceType string `xml:"serviceType"`
				ServiceID   string `xml:"serviceId"`
				ControlURL  string `xml:"controlURL"`
				EventSubURL string `xml:"eventSubURL"`
				SCPDURL     string `xml:"SCPDURL"`
			} `xml:"service"`
		} `xml:"serviceList"`
	} `xml:"device"`
}

// fetchClient bounds description downloads so a black-holed device cannot
// hang a refresh when the caller's context carries no deadline.
var fetchClient = &http.Client{Timeout: 5 * time.Second}

// Fetch downloads and parses a device description. The location typically
// comes from an SSDP responder or from static configuration.
func Fetch(ctx context.Context, location string) (*Device, error) {
	base, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "bad description url %q", location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build description request")
	}

	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch description from %q", location)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch description from %q: %s", location, resp.Status)
	}

	var desc description
	if err := xml.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, errors.Wrapf(err, "parse description from %q", location)
	}

	device := &Device{
		FriendlyName:    desc.Device.FriendlyName,
		Manufacturer:    desc.Device.Manufacturer,
		ModelName:       desc.Device.ModelName,
		ModelNumber:     desc.Device.ModelNumber,
		SerialNumber:    desc.Device.SerialNumber,
		UDN:             desc.Device.UDN,
		MACAddress:      desc.Device.MACAddress,
		FirmwareVersion: desc.Device.FirmwareVersion,
		Location:        location,
		Services:        make(map[string]Service),
		LastSeen:        time.Now(),
	}

	for _, svc := range desc.Device.ServiceList.Services {
		name := serviceName(svc.ServiceType)
		if name == "" {
			continue
		}

		device.Services[name] = Service{
			Type:        svc.ServiceType,
			ID:          svc.ServiceID,
			ControlURL:  resolve(base, svc.ControlURL),
			EventSubURL: resolve(base, svc.EventSubURL),
			SCPDURL:     resolve(base, svc.SCPDURL),
		}
	}

	return device, nil
}

// serviceName maps a service type to the short name used for lookups. Known
// services take the registry's spelling, so "urn:Belkin:service:WiFiSetup:1"
// stays reachable as "wifiSetup". Unknown ones fall back to the URN segment.
func serviceName(serviceType string) string {
	if svc, ok := upnp.LookupServiceByURN(serviceType); ok {
		return svc.ShortName
	}

	parts := strings.Split(serviceType, ":")
	if len(parts) < 5 || parts[0] != "urn" || parts[2] != "service" {
		return ""
	}
	return parts[3]
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
