package upnp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupService(t *testing.T) {
	svc, ok := LookupService("basicevent")
	require.True(t, ok)
	assert.Equal(t, "urn:Belkin:service:basicevent:1", svc.URN)

	act, ok := svc.LookupAction("SetBinaryState")
	require.True(t, ok)
	assert.Equal(t, []string{"BinaryState"}, act.In)
	assert.Equal(t, []string{"BinaryState"}, act.Out)

	_, ok = svc.LookupAction("SelfDestruct")
	assert.False(t, ok)
}

func TestLookupServiceUnknown(t *testing.T) {
	_, ok := LookupService("teleport")
	assert.False(t, ok)
}

func TestLookupServiceByURN(t *testing.T) {
	svc, ok := LookupServiceByURN("urn:Belkin:service:WiFiSetup:1")
	require.True(t, ok)
	assert.Equal(t, "wifiSetup", svc.ShortName)

	_, ok = LookupServiceByURN("urn:Belkin:service:teleport:1")
	assert.False(t, ok)
}

func TestCatalogURNs(t *testing.T) {
	urns := map[string]string{
		"basicevent":     "urn:Belkin:service:basicevent:1",
		"deviceinfo":     "urn:Belkin:service:deviceinfo:1",
		"firmwareupdate": "urn:Belkin:service:firmwareupdate:1",
		"rules":          "urn:Belkin:service:rules:1",
		"timesync":       "urn:Belkin:service:timesync:1",
		"wifiSetup":      "urn:Belkin:service:WiFiSetup:1",
	}

	assert.Len(t, Services(), len(urns))

	for name, urn := range urns {
		svc, ok := LookupService(name)
		require.True(t, ok, name)
		assert.Equal(t, urn, svc.URN)
		assert.NotEmpty(t, svc.Actions, name)
	}
}
