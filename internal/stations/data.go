package stations

// builtinStations is a representative subset of the Bureau of Meteorology
// observation network, keyed by station id. Ported from
// original_source/src/data/bom_stations.py's BOM_STATIONS table; trimmed to
// one cluster per state/territory to keep the built-in table small while
// still exercising Nearest/Search across regions.
var builtinStations = map[string]Station{
	"94768": {DisplayName: "Sydney Observatory Hill", Latitude: -33.8597, Longitude: 151.2053, Region: "NSW"},
	"94767": {DisplayName: "Sydney Airport", Latitude: -33.9399, Longitude: 151.1753, Region: "NSW"},
	"94765": {DisplayName: "Canterbury Racecourse", Latitude: -33.9047, Longitude: 151.1100, Region: "NSW"},
	"94594": {DisplayName: "Wollongong", Latitude: -34.4333, Longitude: 150.8833, Region: "NSW"},
	"94637": {DisplayName: "Wagga Wagga", Latitude: -35.1667, Longitude: 147.4667, Region: "NSW"},

	"95936": {DisplayName: "Melbourne", Latitude: -37.8136, Longitude: 144.9631, Region: "VIC"},
	"95904": {DisplayName: "Melbourne Airport", Latitude: -37.6733, Longitude: 144.8433, Region: "VIC"},
	"95832": {DisplayName: "Ballarat", Latitude: -37.5000, Longitude: 143.8167, Region: "VIC"},
	"95829": {DisplayName: "Bendigo", Latitude: -36.7500, Longitude: 144.2833, Region: "VIC"},

	"94576": {DisplayName: "Brisbane Airport", Latitude: -27.3842, Longitude: 153.1175, Region: "QLD"},
	"94510": {DisplayName: "Warwick", Latitude: -28.2167, Longitude: 152.0000, Region: "QLD"},
	"94403": {DisplayName: "Rockhampton", Latitude: -23.3833, Longitude: 150.4833, Region: "QLD"},

	"23090": {DisplayName: "Adelaide Airport", Latitude: -34.9524, Longitude: 138.5196, Region: "SA"},
	"23034": {DisplayName: "Adelaide Kent Town", Latitude: -34.9211, Longitude: 138.6214, Region: "SA"},

	"9225": {DisplayName: "Perth Airport", Latitude: -31.9275, Longitude: 115.9764, Region: "WA"},
	"9021": {DisplayName: "Perth Metro", Latitude: -31.9275, Longitude: 115.8589, Region: "WA"},

	"94029": {DisplayName: "Hobart Airport", Latitude: -42.8361, Longitude: 147.5103, Region: "TAS"},
	"94008": {DisplayName: "Hobart", Latitude: -42.8806, Longitude: 147.3250, Region: "TAS"},

	"14015": {DisplayName: "Darwin Airport", Latitude: -12.4239, Longitude: 130.8925, Region: "NT"},

	"70351": {DisplayName: "Canberra Airport", Latitude: -35.3069, Longitude: 149.1950, Region: "ACT"},
}
