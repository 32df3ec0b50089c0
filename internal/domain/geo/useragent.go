package geo

import "strings"

// Rule pairs a user-agent predicate with the label it yields.
type Rule struct {
	Match func(ua string) bool
	Label string
}

func containsAny(subs ...string) func(string) bool {
	return func(ua string) bool {
		for _, s := range subs {
			if strings.Contains(ua, s) {
				return true
			}
		}
		return false
	}
}

// Rule tables are evaluated in order; the first match wins. Order encodes precedence
// (Edge and Opera advertise Chrome, Chrome advertises Safari, iOS advertises Mac OS X).
//
//nolint:gochecknoglobals // static read-only lookup tables
var (
	BrowserRules = []Rule{
		{Match: containsAny("Edg/", "Edge/", "EdgA/", "EdgiOS/"), Label: "Edge"},
		{Match: containsAny("OPR/", "Opera"), Label: "Opera"},
		{Match: containsAny("SamsungBrowser/"), Label: "Samsung Internet"},
		{Match: containsAny("Firefox/", "FxiOS/"), Label: "Firefox"},
		{Match: containsAny("Chrome/", "CriOS/"), Label: "Chrome"},
		{Match: containsAny("Safari/"), Label: "Safari"},
		{Match: containsAny("MSIE ", "Trident/"), Label: "Internet Explorer"},
	}

	OSRules = []Rule{
		{Match: containsAny("Android"), Label: "Android"},
		{Match: containsAny("iPhone", "iPad", "iPod"), Label: "iOS"},
		{Match: containsAny("Windows"), Label: "Windows"},
		{Match: containsAny("Mac OS X", "Macintosh"), Label: "macOS"},
		{Match: containsAny("CrOS"), Label: "ChromeOS"},
		{Match: containsAny("Linux"), Label: "Linux"},
	}

	DeviceRules = []Rule{
		{Match: containsAny("iPad", "Tablet"), Label: DeviceTablet},
		{Match: func(ua string) bool {
			return strings.Contains(ua, "Android") && !strings.Contains(ua, "Mobile")
		}, Label: DeviceTablet},
		{Match: containsAny("Mobi", "iPhone", "iPod", "Android"), Label: DeviceMobile},
		{Match: func(ua string) bool { return ua != "" }, Label: DeviceDesktop},
	}
)

// Classify returns the label of the first matching rule, or Unknown.
func Classify(rules []Rule, ua string) string {
	for _, r := range rules {
		if r.Match(ua) {
			return r.Label
		}
	}
	return Unknown
}

// Agent is the browser/OS/device triple derived from a user-agent string.
type Agent struct {
	Browser string
	OS      string
	Device  string
}

// ParseUserAgent classifies a user-agent string against the rule tables.
func ParseUserAgent(ua string) Agent {
	return Agent{
		Browser: Classify(BrowserRules, ua),
		OS:      Classify(OSRules, ua),
		Device:  Classify(DeviceRules, ua),
	}
}
