// Package aqi computes the EPA Air Quality Index from pollutant
// concentrations via piecewise-linear breakpoint interpolation.
package aqi

import "fmt"

// breakpoint is one (concentration range -> index range) bracket of an EPA
// breakpoint table.
type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh int
}

// EPA breakpoint tables. Gases are in ppm, particulates in µg/m³.
var (
	o3Breakpoints = []breakpoint{
		{0.000, 0.054, 0, 50},
		{0.055, 0.070, 51, 100},
		{0.071, 0.085, 101, 150},
		{0.086, 0.105, 151, 200},
		{0.106, 0.200, 201, 300},
		{0.201, 0.604, 301, 500},
	}

	pm25Breakpoints = []breakpoint{
		{0.0, 12.0, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 500.4, 301, 500},
	}

	pm10Breakpoints = []breakpoint{
		{0, 54, 0, 50},
		{55, 154, 51, 100},
		{155, 254, 101, 150},
		{255, 354, 151, 200},
		{355, 424, 201, 300},
		{425, 604, 301, 500},
	}

	coBreakpoints = []breakpoint{
		{0.0, 4.4, 0, 50},
		{4.5, 9.4, 51, 100},
		{9.5, 12.4, 101, 150},
		{12.5, 15.4, 151, 200},
		{15.5, 30.4, 201, 300},
		{30.5, 50.4, 301, 500},
	}

	so2Breakpoints = []breakpoint{
		{0.000, 0.035, 0, 50},
		{0.036, 0.075, 51, 100},
		{0.076, 0.185, 101, 150},
		{0.186, 0.304, 151, 200},
		{0.305, 0.604, 201, 300},
		{0.605, 1.004, 301, 500},
	}

	no2Breakpoints = []breakpoint{
		{0.000, 0.053, 0, 50},
		{0.054, 0.100, 51, 100},
		{0.101, 0.360, 101, 150},
		{0.361, 0.649, 151, 200},
		{0.650, 1.249, 201, 300},
		{1.250, 2.049, 301, 500},
	}
)

// subIndex computes the sub-AQI for one pollutant. The bracket containing the
// concentration is interpolated with the EPA formula, truncating toward zero.
// A concentration beyond the last bracket is extrapolated with the last
// bracket's slope; there is no upper clamp.
func subIndex(c float64, bps []breakpoint) int {
	// Models occasionally forecast slightly negative concentrations;
	// clamp them to the bottom of the scale.
	if c < bps[0].cLow {
		c = bps[0].cLow
	}
	for _, bp := range bps {
		if c >= bp.cLow && c <= bp.cHigh {
			return interpolate(c, bp)
		}
	}
	return interpolate(c, bps[len(bps)-1])
}

func interpolate(c float64, bp breakpoint) int {
	return int(float64(bp.iHigh-bp.iLow)/(bp.cHigh-bp.cLow)*(c-bp.cLow) + float64(bp.iLow))
}

// Overall returns the AQI for one timestep: the maximum of the six pollutant
// sub-indices computed independently. Gas concentrations are in ppm,
// particulates in µg/m³.
func Overall(co, no2, o3, so2, pm25, pm10 float64) int {
	max := subIndex(co, coBreakpoints)
	for _, v := range []int{
		subIndex(no2, no2Breakpoints),
		subIndex(o3, o3Breakpoints),
		subIndex(so2, so2Breakpoints),
		subIndex(pm25, pm25Breakpoints),
		subIndex(pm10, pm10Breakpoints),
	} {
		if v > max {
			max = v
		}
	}
	return max
}

// Series computes a per-timestep AQI sequence from six equally long
// concentration series.
func Series(co, no2, o3, so2, pm25, pm10 []float64) ([]int, error) {
	n := len(co)
	for _, s := range [][]float64{no2, o3, so2, pm25, pm10} {
		if len(s) != n {
			return nil, fmt.Errorf("pollutant series lengths differ: want %d, got %d", n, len(s))
		}
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = Overall(co[i], no2[i], o3[i], so2[i], pm25[i], pm10[i])
	}
	return out, nil
}
