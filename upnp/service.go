package upnp

// Service describes one UPnP service a WeMo device exposes, keyed by the
// short name used in control URLs (e.g. "basicevent").
type Service struct {
	ShortName string
	URN       string
	Actions   map[string]Action
}

// Action describes a remote operation with its declared input and output
// argument names, in order.
type Action struct {
	Name string
	In   []string
	Out  []string
}

// Both tables are built once at init and never mutated, so lookups are safe
// from any goroutine without locking.
var (
	services      map[string]Service
	servicesByURN map[string]Service
)

// LookupService resolves a service short name.
func LookupService(shortName string) (Service, bool) {
	svc, ok := services[shortName]
	return svc, ok
}

// LookupServiceByURN resolves a service by its full URN, as found in device
// descriptions. The short name and the URN segment do not always agree on
// case ("wifiSetup" vs WiFiSetup), the URN is the authoritative key.
func LookupServiceByURN(urn string) (Service, bool) {
	svc, ok := servicesByURN[urn]
	return svc, ok
}

// LookupAction resolves an action by name on a service.
func (s Service) LookupAction(name string) (Action, bool) {
	act, ok := s.Actions[name]
	return act, ok
}

// Services lists the known service short names.
func Services() []string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	return names
}

func register(shortName string, urn string, actions ...Action) {
	svc := Service{ShortName: shortName, URN: urn, Actions: make(map[string]Action, len(actions))}
	for _, act := range actions {
		svc.Actions[act.Name] = act
	}
	services[shortName] = svc
	servicesByURN[urn] = svc
}

func init() {
	services = make(map[string]Service)
	servicesByURN = make(map[string]Service)

	// Argument schemas follow what the devices actually answer with, the
	// reference material does not document them.
	register("basicevent", "urn:Belkin:service:basicevent:1",
		Action{Name: "SetBinaryState", In: []string{"BinaryState"}, Out: []string{"BinaryState"}},
		Action{Name: "GetBinaryState", Out: []string{"BinaryState"}},
		Action{Name: "GetFriendlyName", Out: []string{"FriendlyName"}},
		Action{Name: "ChangeFriendlyName", In: []string{"FriendlyName"}, Out: []string{"FriendlyName"}},
		Action{Name: "GetMacAddr", Out: []string{"MacAddr", "SerialNo", "PluginUDN"}},
		Action{Name: "GetSerialNo", Out: []string{"SerialNo"}},
		Action{Name: "GetSignalStrength", Out: []string{"SignalStrength"}},
	)

	register("deviceinfo", "urn:Belkin:service:deviceinfo:1",
		Action{Name: "GetDeviceInformation", Out: []string{"DeviceInformation"}},
		Action{Name: "GetInformation", Out: []string{"Information"}},
		Action{Name: "GetRouterInformation", Out: []string{"mac", "ssid", "auth", "encrypt", "channel"}},
	)

	register("firmwareupdate", "urn:Belkin:service:firmwareupdate:1",
		Action{Name: "GetFirmwareVersion", Out: []string{"FirmwareVersion"}},
		Action{
			Name: "UpdateFirmware",
			In:   []string{"NewFirmwareVersion", "ReleaseDate", "URL", "Signature", "DownloadStartTime", "WithUnsignedImage"},
		},
	)

	register("rules", "urn:Belkin:service:rules:1",
		Action{Name: "FetchRules", Out: []string{"ruleDbVersion", "processDb", "ruleDbBody"}},
		Action{Name: "StoreRules", In: []string{"ruleDbVersion", "processDb", "ruleDbBody"}},
		Action{Name: "UpdateWeeklyCalendar", In: []string{"Mode", "Days", "StartTime", "EndTime"}},
		Action{Name: "EditWeeklyCalendar", In: []string{"Mode", "Days", "StartTime", "EndTime"}, Out: []string{"Status"}},
	)

	register("timesync", "urn:Belkin:service:timesync:1",
		Action{Name: "GetTime", Out: []string{"UTC", "TimeZone", "dst", "DstSupported"}},
		Action{Name: "TimeSync", In: []string{"UTC", "TimeZone", "dst", "DstSupported"}},
	)

	register("wifiSetup", "urn:Belkin:service:WiFiSetup:1",
		Action{Name: "GetNetworkList", Out: []string{"NetworkList"}},
		Action{
			Name: "ConnectHomeNetwork",
			In:   []string{"ssid", "auth", "password", "encrypt", "channel"},
			Out:  []string{"PairingStatus"},
		},
	)
}
