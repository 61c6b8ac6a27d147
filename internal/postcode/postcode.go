// Package postcode is a process-global, immutable postal-code -> location
// lookup, standing in for the pgeocode database the original implementation
// queried (original_source/src/daylight.py).
package postcode

// Location is a resolved postal code.
type Location struct {
	Latitude  float64
	Longitude float64
	PlaceName string
}

// Lookup resolves a postal code to a Location. The second return is false
// when the postal code is unknown — callers (internal/daylight) must
// degrade gracefully rather than treat this as fatal (§7 LocationUnresolved).
func Lookup(code string) (Location, bool) {
	loc, ok := builtin[code]
	return loc, ok
}

// builtin is a representative sample of Australian postcodes, enough to
// exercise the Daylight Service's auto-discovery path without vendoring a
// full national postcode database.
var builtin = map[string]Location{
	"2000": {Latitude: -33.8688, Longitude: 151.2093, PlaceName: "Sydney"},
	"2010": {Latitude: -33.8830, Longitude: 151.2163, PlaceName: "Surry Hills"},
	"2145": {Latitude: -33.8150, Longitude: 150.9985, PlaceName: "Westmead"},
	"3000": {Latitude: -37.8136, Longitude: 144.9631, PlaceName: "Melbourne"},
	"3350": {Latitude: -37.5622, Longitude: 143.8503, PlaceName: "Ballarat"},
	"4000": {Latitude: -27.4698, Longitude: 153.0251, PlaceName: "Brisbane"},
	"5000": {Latitude: -34.9285, Longitude: 138.6007, PlaceName: "Adelaide"},
	"6000": {Latitude: -31.9523, Longitude: 115.8613, PlaceName: "Perth"},
	"7000": {Latitude: -42.8821, Longitude: 147.3272, PlaceName: "Hobart"},
	"0800": {Latitude: -12.4634, Longitude: 130.8456, PlaceName: "Darwin"},
	"2600": {Latitude: -35.2809, Longitude: 149.1300, PlaceName: "Canberra"},
}
