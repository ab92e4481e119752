package flow

// Trigger represents an event that can cause a phase transition
type Trigger string

const (
	// TriggerReceiptAccepted fires when a legible receipt has been validated
	TriggerReceiptAccepted Trigger = "RECEIPT_ACCEPTED"

	// TriggerInfoComplete fires when the agent signals all required details are gathered
	TriggerInfoComplete Trigger = "INFO_COMPLETE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
