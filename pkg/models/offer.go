package models

// CabinClass is a priced tier of the same offer.
type CabinClass string

const (
	CabinEconomy  CabinClass = "economy"
	CabinPremium  CabinClass = "premium"
	CabinBusiness CabinClass = "business"
	CabinFirst    CabinClass = "first"
)

// cabinMultipliers mirror the backend's published fare tiers.
var cabinMultipliers = map[CabinClass]float64{
	CabinEconomy:  1.0,
	CabinPremium:  1.3,
	CabinBusiness: 1.5,
	CabinFirst:    2.0,
}

// Multiplier returns the fare multiplier for the cabin class, or false if
// the class is not a known tier.
func (c CabinClass) Multiplier() (float64, bool) {
	m, ok := cabinMultipliers[c]
	return m, ok
}

// Offer is a priced, bookable travel-service instance returned by a search,
// e.g. one flight leg. BaseFare is in minor currency units for the economy
// tier of a single adult seat.
type Offer struct {
	ID            string `json:"id"`
	Carrier       string `json:"carrier"`
	Number        string `json:"number"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	TravelDate    string `json:"travel_date"`
	BaseFare      int64  `json:"base_fare"`
	Currency      string `json:"currency"`
}
