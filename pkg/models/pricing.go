package models

import (
	"errors"
	"math"
)

// Age-banded fare rates applied on top of the cabin multiplier.
const (
	rateAdult  = 1.0
	rateChild  = 0.75
	rateInfant = 0.10
)

var ErrUnknownCabinClass = errors.New("unknown cabin class")

func ageBandRate(band AgeBand) float64 {
	switch band {
	case AgeBandChild:
		return rateChild
	case AgeBandInfant:
		return rateInfant
	default:
		return rateAdult
	}
}

// SeatPrice returns the fare for one passenger on one offer in minor
// currency units, rounded half away from zero per seat.
func SeatPrice(baseFare int64, cabin CabinClass, band AgeBand) (int64, error) {
	mult, ok := cabin.Multiplier()
	if !ok {
		return 0, ErrUnknownCabinClass
	}
	return int64(math.Round(float64(baseFare) * mult * ageBandRate(band))), nil
}

// TotalPrice recomputes the draft's total across all legs and passengers.
// It is a pure function of the draft's offers, cabin class, and passenger
// age bands: identical inputs always produce identical output, so a stored
// total can always be re-derived and cross-checked.
func (d *ReservationDraft) TotalPrice() (int64, error) {
	var total int64
	for _, offer := range d.Offers() {
		for _, p := range d.Passengers {
			seat, err := SeatPrice(offer.BaseFare, d.CabinClass, p.AgeBand)
			if err != nil {
				return 0, err
			}
			total += seat
		}
	}
	return total, nil
}
