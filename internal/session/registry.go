package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/reimbursement-bot/internal/domain/flow"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned when an operation references an absent
	// session. This indicates a collaborator bug, not a user-visible condition.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDuplicateSession is returned when creating a session for a requester
	// who already has a live one. Live sessions are never silently overwritten.
	ErrDuplicateSession = errors.New("session already exists")
)

// DefaultIdleTTL is the reference expiry policy: a session is eligible for
// replacement once it is older than this, evaluated lazily on the next
// inbound event rather than by a background sweep.
const DefaultIdleTTL = 300 * time.Second

// Info is a read-only snapshot of one live session, for the admin API
type Info struct {
	RequesterID string     `json:"requester_id"`
	Phase       flow.State `json:"phase"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Registry is the process-wide table mapping requester identity to its live
// session. It is the single mutable shared structure in the system; all map
// mutation happens under one mutex.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	idleTTL   time.Duration
	validator ReceiptValidator
	agent     Agent
	logger    *zap.Logger
}

// NewRegistry creates an empty registry. A non-positive idleTTL falls back to
// the reference 300 second policy.
func NewRegistry(validator ReceiptValidator, agent Agent, idleTTL time.Duration, logger *zap.Logger) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		idleTTL:   idleTTL,
		validator: validator,
		agent:     agent,
		logger:    logger,
	}
}

// Resolve returns the live session for the requester, creating a fresh
// AWAITING_RECEIPT session when none exists or the existing one has expired.
// Folding expiry and creation into one locked operation means callers never
// race between checking and creating.
func (r *Registry) Resolve(requesterID string, now time.Time) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[requesterID]; ok {
		if now.Sub(existing.CreatedAt()) <= r.idleTTL {
			return existing
		}

		r.logger.Info("Expiring stale session",
			zap.String("requester_id", requesterID),
			zap.String("phase", existing.Phase().String()),
			zap.Duration("age", now.Sub(existing.CreatedAt())))
		delete(r.sessions, requesterID)
	}

	sess := New(requesterID, now, r.validator, r.agent, r.logger)
	r.sessions[requesterID] = sess

	r.logger.Info("Session created",
		zap.String("requester_id", requesterID))

	return sess
}

// Create registers a fresh session, failing if a live one already exists.
// Callers that cannot tolerate replacement use this instead of Resolve.
func (r *Registry) Create(requesterID string, now time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[requesterID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, requesterID)
	}

	sess := New(requesterID, now, r.validator, r.agent, r.logger)
	r.sessions[requesterID] = sess
	return sess, nil
}

// Delete removes the requester's session
func (r *Registry) Delete(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[requesterID]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, requesterID)
	}

	delete(r.sessions, requesterID)
	return nil
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot lists all live sessions for monitoring
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]Info, 0, len(r.sessions))
	for _, sess := range r.sessions {
		infos = append(infos, Info{
			RequesterID: sess.RequesterID(),
			Phase:       sess.Phase(),
			CreatedAt:   sess.CreatedAt(),
		})
	}
	return infos
}
