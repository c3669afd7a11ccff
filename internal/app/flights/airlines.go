package flights

// airlineNames maps IATA carrier codes to display names for the carriers the
// product most commonly surfaces. Codes outside this table render without a
// name rather than failing the offer.
var airlineNames = map[string]string{
	"AA": "American Airlines",
	"AS": "Alaska Airlines",
	"B6": "JetBlue",
	"DL": "Delta Air Lines",
	"F9": "Frontier",
	"G4": "Allegiant Air",
	"NK": "Spirit Airlines",
	"UA": "United Airlines",
	"WN": "Southwest Airlines",
	"AC": "Air Canada",
	"AM": "Aeromexico",
	"BA": "British Airways",
	"JB": "JetBlue", // alternate
	"KL": "KLM",
	"LH": "Lufthansa",
	"MX": "Breeze Airways",
	"SY": "Sun Country",
	"VX": "Virgin America",
	"Y4": "Volaris",
}

// AirlineName resolves an IATA carrier code to a display name.
func AirlineName(carrierCode string) (string, bool) {
	name, ok := airlineNames[carrierCode]
	return name, ok
}
