package airnow

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// minColumns is the smallest column count a snapshot row may have and still
// carry every field we read.
const minColumns = 33

// Column positions in the HourlyAQObs snapshot format.
const (
	colAQSID     = 0
	colSiteName  = 1
	colLatitude  = 4
	colLongitude = 5
	colValidDate = 10
	colValidTime = 11
	colPM25      = 22
	colOzone     = 24
	colNO2       = 26
	colCO        = 28
	colSO2       = 30
	colPM10      = 32
)

// ParseSnapshot parses the body of one hourly snapshot into records.
// The first line is a header and is skipped. Malformed rows are dropped
// individually; a bad numeric field defaults to 0.0 rather than discarding
// the row.
func ParseSnapshot(body string) []HourlyRecord {
	lines := strings.Split(body, "\n")
	if len(lines) <= 1 {
		return nil
	}

	records := make([]HourlyRecord, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, ok := parseRow(line)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// parseRow parses a single CSV row. Rows with fewer than minColumns fields
// are rejected.
func parseRow(line string) (HourlyRecord, bool) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1

	row, err := reader.Read()
	if err != nil || len(row) < minColumns {
		return HourlyRecord{}, false
	}

	return HourlyRecord{
		AQSID:     row[colAQSID],
		SiteName:  row[colSiteName],
		Latitude:  parseFloat(row[colLatitude]),
		Longitude: parseFloat(row[colLongitude]),
		ValidDate: row[colValidDate],
		ValidTime: row[colValidTime],
		Ozone:     parseFloat(row[colOzone]),
		NO2:       parseFloat(row[colNO2]),
		CO:        parseFloat(row[colCO]),
		SO2:       parseFloat(row[colSO2]),
		PM25:      parseFloat(row[colPM25]),
		PM10:      parseFloat(row[colPM10]),
	}, true
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0.0
	}
	return v
}
