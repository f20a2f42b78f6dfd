package models

// Overseerr media availability codes as returned in mediaInfo.status.
const (
	AvailabilityUnknown = 1 + iota
	AvailabilityPending
	AvailabilityProcessing
	AvailabilityPartiallyAvailable
	AvailabilityAvailable
	AvailabilityDeleted
)

// Overseerr request state codes.
const (
	RequestPendingApproval = 1 + iota
	RequestApproved
	RequestDeclined
)

var availabilityLabels = map[int]string{
	AvailabilityUnknown:            "Unknown",
	AvailabilityPending:            "Pending",
	AvailabilityProcessing:         "Processing",
	AvailabilityPartiallyAvailable: "Partially available",
	AvailabilityAvailable:          "Available",
	AvailabilityDeleted:            "Deleted",
}

var requestStatusLabels = map[int]string{
	RequestPendingApproval: "Pending approval",
	RequestApproved:        "Approved",
	RequestDeclined:        "Declined",
}

// AvailabilityLabel returns a human friendly label for an availability code,
// or an empty string for codes the server has not documented.
func AvailabilityLabel(code int) string {
	return availabilityLabels[code]
}

// RequestStatusLabel returns a human friendly label for a request state code.
func RequestStatusLabel(code int) string {
	return requestStatusLabels[code]
}
