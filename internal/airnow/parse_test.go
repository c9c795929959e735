package airnow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotRow builds a 33-column row with the fields this service reads.
func snapshotRow(aqsid, site, lat, lon, date, tm, pm25, o3, no2, co, so2, pm10 string) string {
	cols := make([]string, minColumns)
	cols[colAQSID] = aqsid
	cols[colSiteName] = site
	cols[colLatitude] = lat
	cols[colLongitude] = lon
	cols[colValidDate] = date
	cols[colValidTime] = tm
	cols[colPM25] = pm25
	cols[colOzone] = o3
	cols[colNO2] = no2
	cols[colCO] = co
	cols[colSO2] = so2
	cols[colPM10] = pm10
	return strings.Join(cols, ",")
}

func TestParseSnapshot(t *testing.T) {
	body := strings.Join([]string{
		"header line,ignored",
		snapshotRow("060010007", "Oakland West", "37.814", "-122.282", "01/15/2024", "12:00", "8.2", "0.031", "0.012", "0.4", "0.002", "15"),
		snapshotRow("060010011", "Livermore", "37.687", "-121.784", "01/15/2024", "12:00", "5.1", "0.028", "0.009", "0.3", "0.001", "11"),
	}, "\n")

	records := ParseSnapshot(body)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, "060010007", r.AQSID)
	assert.Equal(t, "Oakland West", r.SiteName)
	assert.Equal(t, 37.814, r.Latitude)
	assert.Equal(t, -122.282, r.Longitude)
	assert.Equal(t, "01/15/2024", r.ValidDate)
	assert.Equal(t, "12:00", r.ValidTime)
	assert.Equal(t, 8.2, r.PM25)
	assert.Equal(t, 0.031, r.Ozone)
	assert.Equal(t, 0.012, r.NO2)
	assert.Equal(t, 0.4, r.CO)
	assert.Equal(t, 0.002, r.SO2)
	assert.Equal(t, 15.0, r.PM10)
}

func TestParseSnapshotDropsShortRows(t *testing.T) {
	body := strings.Join([]string{
		"header",
		"only,three,columns",
		snapshotRow("060010007", "Oakland West", "37.8", "-122.3", "01/15/2024", "12:00", "8", "0", "0", "0", "0", "0"),
		"",
	}, "\n")

	records := ParseSnapshot(body)
	require.Len(t, records, 1)
	assert.Equal(t, "060010007", records[0].AQSID)
}

func TestParseSnapshotBadNumericDefaultsToZero(t *testing.T) {
	body := "header\n" +
		snapshotRow("060010007", "Oakland West", "", "not-a-number", "01/15/2024", "12:00", "n/a", "", "0.01", "0.4", "", "12")

	records := ParseSnapshot(body)
	require.Len(t, records, 1)

	r := records[0]
	assert.Zero(t, r.Latitude)
	assert.Zero(t, r.Longitude)
	assert.Zero(t, r.PM25)
	assert.Zero(t, r.Ozone)
	assert.Zero(t, r.SO2)
	assert.Equal(t, 0.01, r.NO2)
	assert.Equal(t, 12.0, r.PM10)
}

func TestParseSnapshotHeaderOnly(t *testing.T) {
	assert.Empty(t, ParseSnapshot("header only"))
	assert.Empty(t, ParseSnapshot(""))
}

func TestParseSnapshotCRLF(t *testing.T) {
	body := "header\r\n" +
		snapshotRow("1", "Site", "1.0", "2.0", "01/15/2024", "12:00", "1", "0", "0", "0", "0", "1") + "\r\n"

	records := ParseSnapshot(body)
	require.Len(t, records, 1)
	assert.Equal(t, 2.0, records[0].Longitude)
}
