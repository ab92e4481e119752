package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/reimbursement-bot/internal/domain/flow"
	"github.com/garyjia/reimbursement-bot/internal/receipt"
	"go.uber.org/zap"
)

// Fixed user-facing replies. Every handling path yields at least one
// notification to the requester; failures are never silent.
const (
	msgUploadPrompt = "Hello! I'm here to help with your expense reimbursement. " +
		"Please upload a photo of your receipt to get started."
	msgNotAReceipt = "That file doesn't look like a receipt. " +
		"Please upload a photo of the receipt for your expense."
	msgUnreadable = "The receipt image is too blurry to read. " +
		"Please upload a clearer photo."
	msgExtractionError = "Sorry, I couldn't download or process that file. " +
		"Please try uploading it again."
	msgReceiptAlreadyAccepted = "A receipt has already been accepted for this request. " +
		"Please answer the remaining questions instead of uploading another file."
	msgAlreadyComplete = "This reimbursement request is already complete. " +
		"Message me again later to start a new one."
	msgAgentUnavailable = "Sorry, I'm having trouble responding right now. " +
		"Please send that again in a moment."
	msgConfirmation = "All set! Your reimbursement request has been sent for approval."
)

// Instructions handed to the agent alongside the transcript. They ride with
// the prompt context rather than the transcript, which records only the
// dialogue itself.
const (
	instructionGatherInfo = "A legible receipt has been accepted; its extracted details appear above. " +
		"Briefly summarize what the receipt supplied, then ask the requester for whatever required " +
		"information is still missing (such as business purpose or project code). Ask one question at a time."
	instructionProbeCompletion = "Continue gathering the missing reimbursement details, asking only for " +
		"what earlier turns have not already supplied. Once every required detail has been provided, " +
		"confirm to the requester that the request is done."
)

// Reply is the structured result of one conversational agent call. Complete
// is the agent's signal that all required information has been gathered.
type Reply struct {
	Text     string
	Complete bool
}

// Agent composes the next conversational turn from the accumulated context
type Agent interface {
	Reply(ctx context.Context, contextText string) (*Reply, error)
}

// ReceiptValidator validates uploaded documents into a tri-state verdict
type ReceiptValidator interface {
	Validate(ctx context.Context, paths []string) (*receipt.Verdict, error)
}

// Session is one active reimbursement workflow for a requester. It owns the
// conversation transcript and drives the phase machine; all mutation happens
// inside Handle under the session's own lock, so two near-simultaneous
// messages from one requester cannot interleave transcript appends.
type Session struct {
	requesterID string
	createdAt   time.Time

	mu         sync.Mutex
	machine    *flow.Machine
	transcript Transcript
	fields     map[string]string

	// phase mirrors the machine state so reads never touch the session
	// lock. Handle can sit in an extractor or agent call for its full
	// timeout; the registry still needs Phase for expiry logging and
	// snapshots without queueing behind that turn.
	phase atomic.Value

	validator ReceiptValidator
	agent     Agent
	logger    *zap.Logger
}

// newConversationMachine declares the full (linear) transition table. A
// reimbursement request models a one-shot approval pipeline: no backward
// edges exist, so a requester can never silently swap receipts after
// follow-up questions have been asked about the first one.
func newConversationMachine() *flow.Machine {
	return flow.NewBuilder().
		Permit(flow.StateAwaitingReceipt, flow.TriggerReceiptAccepted, flow.StateGatheringInfo).
		Permit(flow.StateGatheringInfo, flow.TriggerInfoComplete, flow.StateComplete).
		Build(flow.StateAwaitingReceipt)
}

// New creates a fresh session in AWAITING_RECEIPT with an empty transcript
func New(requesterID string, createdAt time.Time, validator ReceiptValidator, agent Agent, logger *zap.Logger) *Session {
	s := &Session{
		requesterID: requesterID,
		createdAt:   createdAt,
		machine:     newConversationMachine(),
		validator:   validator,
		agent:       agent,
		logger:      logger,
	}
	s.phase.Store(s.machine.State())
	return s
}

// RequesterID returns the identity this session belongs to
func (s *Session) RequesterID() string {
	return s.requesterID
}

// CreatedAt returns the creation timestamp, set once and used only for expiry
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Phase returns the current conversation phase. It reads the lock-free
// mirror, so it returns even while a Handle call is in flight.
func (s *Session) Phase() flow.State {
	return s.phase.Load().(flow.State)
}

// TranscriptEntries returns a copy of the transcript in insertion order
func (s *Session) TranscriptEntries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Entries()
}

// Fields returns a copy of the structured receipt fields accepted for this
// session, or nil while no receipt has been accepted
func (s *Session) Fields() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fields == nil {
		return nil
	}
	out := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Handle consumes one inbound event (message text and/or locally stored
// attachment paths) and produces the outbound notifications it warrants.
// Extractor and agent failures are converted to user-facing retry messages
// here; they never escape as errors.
func (s *Session) Handle(ctx context.Context, text string, files []string) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.machine.State() {
	case flow.StateAwaitingReceipt:
		return s.handleAwaitingReceipt(ctx, files)
	case flow.StateGatheringInfo:
		return s.handleGatheringInfo(ctx, text, files)
	case flow.StateComplete:
		return []Notification{{Destination: DestRequesterDM, Text: msgAlreadyComplete}}
	default:
		// Machine only produces the three phases above
		s.logger.Error("Session in unknown phase",
			zap.String("requester_id", s.requesterID),
			zap.String("phase", s.machine.State().String()))
		return []Notification{{Destination: DestRequesterDM, Text: msgAgentUnavailable}}
	}
}

func (s *Session) handleAwaitingReceipt(ctx context.Context, files []string) []Notification {
	if len(files) == 0 {
		return []Notification{{Destination: DestRequesterDM, Text: msgUploadPrompt}}
	}

	verdict, err := s.validator.Validate(ctx, files)
	if err != nil {
		s.logger.Warn("Receipt validation failed, keeping session in current phase",
			zap.String("requester_id", s.requesterID),
			zap.Error(err))
		return []Notification{{Destination: DestRequesterDM, Text: msgExtractionError}}
	}

	switch verdict.Tag {
	case receipt.VerdictNotAReceipt:
		s.transcript.Append(RoleSystem, msgNotAReceipt)
		return []Notification{{Destination: DestRequesterDM, Text: msgNotAReceipt}}

	case receipt.VerdictUnreadable:
		s.transcript.Append(RoleSystem, msgUnreadable)
		return []Notification{{Destination: DestRequesterDM, Text: msgUnreadable}}
	}

	// Legible receipt: record the summary, then ask the agent to move the
	// conversation into information gathering.
	summary := verdict.Summary()
	s.transcript.Append(RoleSystem, summary)

	reply, err := s.agent.Reply(ctx, s.transcript.Render()+"\n"+instructionGatherInfo)
	if err != nil {
		s.logger.Warn("Agent unavailable after receipt acceptance",
			zap.String("requester_id", s.requesterID),
			zap.Error(err))
		return []Notification{{Destination: DestRequesterDM, Text: msgAgentUnavailable}}
	}

	s.transcript.Append(RoleAgent, reply.Text)
	s.fields = verdict.Fields

	if err := s.machine.Fire(ctx, flow.TriggerReceiptAccepted); err != nil {
		// Transition table guarantees this edge; reaching here is a bug
		s.logger.Error("Phase transition rejected",
			zap.String("requester_id", s.requesterID),
			zap.Error(err))
	}
	s.phase.Store(s.machine.State())

	return []Notification{{Destination: DestRequesterDM, Text: reply.Text}}
}

func (s *Session) handleGatheringInfo(ctx context.Context, text string, files []string) []Notification {
	if len(files) > 0 {
		// Exactly one receipt backs one session; no validation call is made
		return []Notification{{Destination: DestRequesterDM, Text: msgReceiptAlreadyAccepted}}
	}

	s.transcript.Append(RoleUser, text)

	reply, err := s.agent.Reply(ctx, s.transcript.Render()+"\n"+instructionProbeCompletion)
	if err != nil {
		s.logger.Warn("Agent unavailable during information gathering",
			zap.String("requester_id", s.requesterID),
			zap.Error(err))
		return []Notification{{Destination: DestRequesterDM, Text: msgAgentUnavailable}}
	}

	s.transcript.Append(RoleAgent, reply.Text)

	if !reply.Complete {
		return []Notification{{Destination: DestRequesterDM, Text: reply.Text}}
	}

	if err := s.machine.Fire(ctx, flow.TriggerInfoComplete); err != nil {
		s.logger.Error("Phase transition rejected",
			zap.String("requester_id", s.requesterID),
			zap.Error(err))
	}
	s.phase.Store(s.machine.State())

	s.logger.Info("Reimbursement request complete",
		zap.String("requester_id", s.requesterID),
		zap.Int("transcript_entries", s.transcript.Len()))

	// The approval broadcast must land before the requester confirmation;
	// the router preserves this order.
	return []Notification{
		{Destination: DestApprovalChannel, Text: s.approvalBroadcast()},
		{Destination: DestRequesterDM, Text: msgConfirmation},
	}
}

func (s *Session) approvalBroadcast() string {
	verdict := receipt.Verdict{Tag: receipt.VerdictValid, Fields: s.fields}
	return fmt.Sprintf("New reimbursement request from %s is ready for approval.\n%s",
		s.requesterID, verdict.Summary())
}
