package discover

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wemo/soap"
	"wemo/upnp"
)

const setupXML = `<?xml version="1.0"?>
<root xmlns="urn:Belkin:device-1-0">
  <device>
    <deviceType>urn:Belkin:device:controllee:1</deviceType>
    <friendlyName>Porch Light</friendlyName>
    <manufacturer>Belkin International Inc.</manufacturer>
    <modelName>Socket</modelName>
    <modelNumber>1.0</modelNumber>
    <serialNumber>221450K01001A1</serialNumber>
    <UDN>uuid:Socket-1_0-221450K01001A1</UDN>
    <macAddress>EC1A59000000</macAddress>
    <firmwareVersion>WeMo_WW_2.00.11452.PVT-OWRT-SNS</firmwareVersion>
    <serviceList>
      <service>
        <serviceType>urn:Belkin:service:basicevent:1</serviceType>
        <serviceId>urn:Belkin:serviceId:basicevent1</serviceId>
        <controlURL>/upnp/control/basicevent1</controlURL>
        <eventSubURL>/upnp/event/basicevent1</eventSubURL>
        <SCPDURL>/eventservice.xml</SCPDURL>
      </service>
      <service>
        <serviceType>urn:Belkin:service:timesync:1</serviceType>
        <serviceId>urn:Belkin:serviceId:timesync1</serviceId>
        <controlURL>/upnp/control/timesync1</controlURL>
        <eventSubURL>/upnp/event/timesync1</eventSubURL>
        <SCPDURL>/timesyncservice.xml</SCPDURL>
      </service>
      <service>
        <serviceType>urn:Belkin:service:WiFiSetup:1</serviceType>
        <serviceId>urn:Belkin:serviceId:WiFiSetup1</serviceId>
        <controlURL>/upnp/control/WiFiSetup1</controlURL>
        <eventSubURL>/upnp/event/WiFiSetup1</eventSubURL>
        <SCPDURL>/setupservice.xml</SCPDURL>
      </service>
    </serviceList>
  </device>
</root>`

// newMockDevice serves a WeMo-shaped description plus a basicevent control
// endpoint that echoes SetBinaryState.
func newMockDevice(t *testing.T) *httptest.Server {
	t.Helper()

	router := mux.NewRouter()
	router.HandleFunc("/setup.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(setupXML))
	}).Methods(http.MethodGet)

	router.HandleFunc("/upnp/control/basicevent1", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		req, err := soap.Decode(body, "urn:Belkin:service:basicevent:1", []string{"BinaryState"})
		require.NoError(t, err)

		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		w.Write([]byte(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">` +
			`<s:Body><u:SetBinaryStateResponse xmlns:u="urn:Belkin:service:basicevent:1">` +
			`<BinaryState>` + req.Values["BinaryState"] + `</BinaryState>` +
			`</u:SetBinaryStateResponse></s:Body></s:Envelope>`))
	}).Methods(http.MethodPost)

	router.HandleFunc("/upnp/control/WiFiSetup1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		w.Write([]byte(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">` +
			`<s:Body><u:GetNetworkListResponse xmlns:u="urn:Belkin:service:WiFiSetup:1">` +
			`<NetworkList>Page:1/1/1$home|6|WPA2$</NetworkList>` +
			`</u:GetNetworkListResponse></s:Body></s:Envelope>`))
	}).Methods(http.MethodPost)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server
}

func TestFetch(t *testing.T) {
	server := newMockDevice(t)

	device, err := Fetch(context.Background(), server.URL+"/setup.xml")
	require.NoError(t, err)

	assert.Equal(t, "Porch Light", device.FriendlyName)
	assert.Equal(t, "uuid:Socket-1_0-221450K01001A1", device.UDN)
	assert.Equal(t, "221450K01001A1", device.SerialNumber)
	assert.Equal(t, "EC1A59000000", device.MACAddress)
	assert.Equal(t, "WeMo_WW_2.00.11452.PVT-OWRT-SNS", device.FirmwareVersion)
	assert.Equal(t, "Socket", device.ModelName)

	require.Contains(t, device.Services, "basicevent")
	require.Contains(t, device.Services, "timesync")

	// The registry's spelling wins over the URN segment's casing.
	require.Contains(t, device.Services, "wifiSetup")
	assert.NotContains(t, device.Services, "WiFiSetup")

	// Relative control URLs resolve against the description location.
	assert.Equal(t, server.URL+"/upnp/control/basicevent1", device.Services["basicevent"].ControlURL)
	assert.Equal(t, server.URL+"/upnp/event/timesync1", device.Services["timesync"].EventSubURL)
}

func TestFetchUnreachable(t *testing.T) {
	server := newMockDevice(t)

	_, err := Fetch(context.Background(), server.URL+"/nope.xml")
	assert.Error(t, err)
}

func TestDeviceInvoke(t *testing.T) {
	server := newMockDevice(t)

	device, err := Fetch(context.Background(), server.URL+"/setup.xml")
	require.NoError(t, err)

	c := upnp.NewClient()
	res, err := device.Invoke(context.Background(), c, "basicevent", "SetBinaryState", map[string]string{"BinaryState": "1"})

	require.NoError(t, err)
	assert.Equal(t, "1", res.Values["BinaryState"])
}

// Invoking wifiSetup end to end: the device description says WiFiSetup, the
// catalog says wifiSetup, both must land on the same control URL.
func TestDeviceInvokeWifiSetup(t *testing.T) {
	server := newMockDevice(t)

	device, err := Fetch(context.Background(), server.URL+"/setup.xml")
	require.NoError(t, err)

	c := upnp.NewClient()
	res, err := device.Invoke(context.Background(), c, "wifiSetup", "GetNetworkList", nil)

	require.NoError(t, err)
	assert.Equal(t, "Page:1/1/1$home|6|WPA2$", res.Values["NetworkList"])
}

func TestDeviceInvokeUnknownService(t *testing.T) {
	device := &Device{FriendlyName: "Porch Light", Services: map[string]Service{}}

	_, err := device.Invoke(context.Background(), upnp.NewClient(), "basicevent", "GetBinaryState", nil)

	var invalid *upnp.InvalidRequestError
	require.ErrorAs(t, err, &invalid)
}

func TestTableRefresh(t *testing.T) {
	server := newMockDevice(t)

	table := NewTable(NewStatic(server.URL+"/setup.xml"), time.Minute)
	defer table.Stop()

	require.NoError(t, table.Refresh(context.Background()))

	device, ok := table.Get("uuid:Socket-1_0-221450K01001A1")
	require.True(t, ok)
	assert.Equal(t, "Porch Light", device.FriendlyName)

	assert.Len(t, table.Devices(), 1)
}

func TestTableRefreshSkipsUnreachable(t *testing.T) {
	server := newMockDevice(t)

	table := NewTable(NewStatic(
		"http://127.0.0.1:1/setup.xml",
		server.URL+"/setup.xml",
	), time.Minute)
	defer table.Stop()

	require.NoError(t, table.Refresh(context.Background()))
	assert.Len(t, table.Devices(), 1)
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "basicevent", serviceName("urn:Belkin:service:basicevent:1"))
	assert.Equal(t, "wifiSetup", serviceName("urn:Belkin:service:WiFiSetup:1"))
	// Services outside the catalog keep their URN segment.
	assert.Equal(t, "insight", serviceName("urn:Belkin:service:insight:1"))
	assert.Equal(t, "", serviceName("not-a-urn"))
}

func TestFetchTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()

	restore := fetchClient
	fetchClient = &http.Client{Timeout: 20 * time.Millisecond}
	defer func() { fetchClient = restore }()

	// No deadline on the context, the client's own timeout has to fire.
	_, err := Fetch(context.Background(), slow.URL+"/setup.xml")
	assert.Error(t, err)
}
