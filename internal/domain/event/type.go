package event

// Type identifies the type of domain event
type Type string

const (
	// TypeMessageReceived is published for every inbound direct message,
	// carrying the requester id, message text and any downloaded attachments
	TypeMessageReceived Type = "message.received"

	// TypeRequestCompleted is published when a reimbursement conversation
	// reaches its terminal phase with all required details gathered
	TypeRequestCompleted Type = "request.completed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeMessageReceived, TypeRequestCompleted:
		return true
	default:
		return false
	}
}
