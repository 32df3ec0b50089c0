// Package geo holds location and device metadata derived for inbound requests.
package geo

// Unknown is the placeholder for values no detector or provider could resolve.
const Unknown = "Unknown"

// Device classes.
const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
)

// Location is what a geolocation provider resolves. Empty strings and nil
// coordinates mean the provider did not supply the value.
type Location struct {
	Country     string
	CountryCode string
	City        string
	Region      string
	Lat         *float64
	Lon         *float64
}

// HasCoordinates reports whether both latitude and longitude are present.
func (l Location) HasCoordinates() bool { return l.Lat != nil && l.Lon != nil }

// Record is the resolved geo/device metadata for a request.
type Record struct {
	IP          string   `json:"ip,omitempty"`
	Browser     string   `json:"browser"`
	OS          string   `json:"os"`
	Device      string   `json:"device"`
	Country     string   `json:"country"`
	CountryCode string   `json:"countryCode,omitempty"`
	City        string   `json:"city"`
	Region      string   `json:"region,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

// Merge folds a freshly resolved location into the record without discarding known values.
// When the location carries both country and city they replace the current pair together;
// otherwise only missing fields are filled.
func (r Record) Merge(loc Location) Record {
	if loc.Country != "" && loc.City != "" {
		r.Country = loc.Country
		r.City = loc.City
		if loc.CountryCode != "" {
			r.CountryCode = loc.CountryCode
		}
		if loc.Region != "" {
			r.Region = loc.Region
		}
		if loc.HasCoordinates() {
			r.Lat, r.Lon = loc.Lat, loc.Lon
		}
		return r
	}

	r.Country = firstNonEmpty(r.Country, loc.Country)
	r.City = firstNonEmpty(r.City, loc.City)
	r.CountryCode = firstNonEmpty(r.CountryCode, loc.CountryCode)
	r.Region = firstNonEmpty(r.Region, loc.Region)
	if r.Lat == nil && r.Lon == nil && loc.HasCoordinates() {
		r.Lat, r.Lon = loc.Lat, loc.Lon
	}
	return r
}

// WithDefaults fills unresolved country and city with Unknown.
// Region and coordinates stay absent.
func (r Record) WithDefaults() Record {
	r.Country = firstNonEmpty(r.Country, Unknown)
	r.City = firstNonEmpty(r.City, Unknown)
	r.Browser = firstNonEmpty(r.Browser, Unknown)
	r.OS = firstNonEmpty(r.OS, Unknown)
	r.Device = firstNonEmpty(r.Device, Unknown)
	return r
}

// Location returns the location portion of the record.
func (r Record) Location() Location {
	return Location{
		Country:     r.Country,
		CountryCode: r.CountryCode,
		City:        r.City,
		Region:      r.Region,
		Lat:         r.Lat,
		Lon:         r.Lon,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
