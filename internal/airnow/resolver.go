package airnow

import "math"

const (
	// earthRadiusKm is the mean Earth radius used by the haversine formula.
	earthRadiusKm = 6371

	// DefaultMaxDistanceKm is the default search radius for nearest-station
	// resolution.
	DefaultMaxDistanceKm = 150
)

// Haversine returns the great-circle distance in kilometers between two
// latitude/longitude points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Resolution is the outcome of nearest-station filtering. A nil Station with
// a non-nil query point means no station was found within the radius; that is
// an explicit empty result, not an error.
type Resolution struct {
	Records    []HourlyRecord
	Station    *Station
	DistanceKm float64
}

// Stations derives the candidate station set from hourly records, keeping the
// first-seen coordinate per unique AQSID. Order follows first encounter in
// the input sequence.
func Stations(records []HourlyRecord) []Station {
	seen := make(map[string]bool, len(records))
	var stations []Station
	for _, r := range records {
		if seen[r.AQSID] {
			continue
		}
		seen[r.AQSID] = true
		stations = append(stations, Station{
			AQSID:     r.AQSID,
			Name:      r.SiteName,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}
	return stations
}

// Resolve filters records to the single station nearest to the query point
// within maxKm kilometers. With a nil query point the full record set is
// passed through unfiltered. Stations carrying the (0,0) sentinel coordinate
// are excluded from distance ranking. Ties keep the first-encountered
// station, so the result is deterministic for a given input sequence.
func Resolve(records []HourlyRecord, lat, lon *float64, maxKm float64) Resolution {
	if lat == nil || lon == nil {
		return Resolution{Records: records}
	}
	if maxKm <= 0 {
		maxKm = DefaultMaxDistanceKm
	}

	var (
		nearest  *Station
		minDist  = math.Inf(1)
		stations = Stations(records)
	)
	for i := range stations {
		st := stations[i]
		if st.Latitude == 0 && st.Longitude == 0 {
			continue
		}
		d := Haversine(*lat, *lon, st.Latitude, st.Longitude)
		if d < minDist && d <= maxKm {
			minDist = d
			nearest = &stations[i]
		}
	}

	if nearest == nil {
		return Resolution{}
	}

	var filtered []HourlyRecord
	for _, r := range records {
		if r.AQSID == nearest.AQSID {
			filtered = append(filtered, r)
		}
	}
	return Resolution{
		Records:    filtered,
		Station:    nearest,
		DistanceKm: minDist,
	}
}
