package models

// AgeBand classifies a passenger for fare discounting.
type AgeBand string

const (
	AgeBandAdult  AgeBand = "adult"
	AgeBandChild  AgeBand = "child"
	AgeBandInfant AgeBand = "infant"
)

// Passenger is one traveller record on a reservation draft.
type Passenger struct {
	Name           string  `json:"name"            validate:"required"`
	BirthDate      string  `json:"birth_date"      validate:"required,datetime=2006-01-02"`
	DocumentNumber string  `json:"document_number" validate:"required,min=5,max=20"`
	AgeBand        AgeBand `json:"age_band"        validate:"required,oneof=adult child infant"`
}

// ContactInfo identifies the booking holder for backend notifications.
type ContactInfo struct {
	Name  string `json:"name"  validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

// ReservationDraft is a user's in-progress booking selection. The total
// price is never stored on the draft: it is always recomputed from the
// offers, cabin class, and passenger age bands (see TotalPrice).
type ReservationDraft struct {
	OutboundOffer Offer       `json:"outbound_offer" validate:"required"`
	ReturnOffer   *Offer      `json:"return_offer,omitempty"`
	Passengers    []Passenger `json:"passengers"     validate:"required,min=1,dive"`
	Contact       ContactInfo `json:"contact"        validate:"required"`
	CabinClass    CabinClass  `json:"cabin_class"    validate:"required,oneof=economy premium business first"`
	PartySize     int         `json:"party_size"     validate:"required,min=1"`
}

// Offers returns the draft's legs, outbound first.
func (d *ReservationDraft) Offers() []Offer {
	offers := []Offer{d.OutboundOffer}
	if d.ReturnOffer != nil {
		offers = append(offers, *d.ReturnOffer)
	}
	return offers
}
