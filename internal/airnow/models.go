package airnow

// HourlyRecord is one station's observation row taken from an hourly AirNow
// surface snapshot, normalized at the ingestion boundary. JSON field names
// follow the upstream column names so the forecast gateway receives the
// payload it was trained against.
type HourlyRecord struct {
	AQSID     string  `json:"AQSID"`
	SiteName  string  `json:"SiteName"`
	Latitude  float64 `json:"Latitude"`
	Longitude float64 `json:"Longitude"`
	ValidDate string  `json:"ValidDate"`
	ValidTime string  `json:"ValidTime"`
	Ozone     float64 `json:"OZONE_Measured"`
	NO2       float64 `json:"NO2_Measured"`
	CO        float64 `json:"CO"`
	SO2       float64 `json:"SO2"`
	PM25      float64 `json:"PM25_Measured"`
	PM10      float64 `json:"PM10_Measured"`
}

// Station is a monitoring site derived from hourly records using the
// first-seen coordinate per AQSID.
type Station struct {
	AQSID     string  `json:"AQSID"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}
