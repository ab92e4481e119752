package session

// Destination classifies where an outbound notification is delivered
type Destination string

const (
	// DestRequesterDM replies in the requester's private chat
	DestRequesterDM Destination = "REQUESTER_DM"

	// DestApprovalChannel broadcasts to the fixed approval destination
	DestApprovalChannel Destination = "APPROVAL_CHANNEL"
)

// String returns the string representation of the destination
func (d Destination) String() string {
	return string(d)
}

// Notification is one outbound message produced by session event handling.
// It is consumed once by the notification router, then discarded.
type Notification struct {
	Destination Destination
	Text        string
}

// DownloadFailureNotification is the requester-facing reply when an uploaded
// attachment could not be retrieved from the chat platform. The failure
// happens before the session is involved, but the requester still hears the
// same apology the extraction path uses.
func DownloadFailureNotification() Notification {
	return Notification{Destination: DestRequesterDM, Text: msgExtractionError}
}
