package draftstore

import "fmt"

// PendingReservationKey is the single well-known slot holding the most
// recent auth-interrupted reservation draft. It is overwritten on each new
// interruption and cleared once consumed.
func PendingReservationKey() string {
	return "draft:pending-reservation"
}

// PassengerDraftKey addresses raw passenger-form field values for one
// booking attempt. The key is derived from stable business identifiers so
// drafts for different bookings never collide.
func PassengerDraftKey(offerID, travelDate string, partySize int) string {
	return fmt.Sprintf("draft:passengers:%s:%s:%d", offerID, travelDate, partySize)
}

// OrderDraftKey addresses the submitted draft backing one payment order, so
// the pay step and the gateway callback can rehydrate it on a later request.
func OrderDraftKey(orderID string) string {
	return fmt.Sprintf("draft:order:%s", orderID)
}

// FieldHistoryKey addresses the recent-values list for one form field.
func FieldHistoryKey(field string) string {
	return fmt.Sprintf("draft:field-history:%s", field)
}
