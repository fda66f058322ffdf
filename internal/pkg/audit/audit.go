package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/app/repository"
)

// Audit action names emitted by the engine.
const (
	ActionMembershipActivated   = "membership.activated"
	ActionMembershipDeactivated = "membership.deactivated"
	ActionMembershipExpired     = "membership.expired"
	ActionTierChanged           = "tier.changed"
	ActionCapabilityGranted     = "capability.granted"
	ActionCapabilityRevoked     = "capability.revoked"
	ActionSubAccountCreated     = "subaccount.created"
	ActionSubAccountUpdated     = "subaccount.updated"
	ActionSubAccountSuspended   = "subaccount.suspended"
	ActionDelegationDenied      = "delegation.denied"
)

// Event is the structured payload handed to the sink.
type Event struct {
	Action          string
	ActorID         uint
	TargetAccountID uint
	Reason          string
	Metadata        map[string]interface{}
}

// Sink accepts audit events. Emit must never block the caller; failure to log
// never blocks the underlying state change.
type Sink interface {
	Emit(event Event)
}

// Writer is the default sink: a buffered channel drained by one goroutine
// that writes rows through the audit repository.
type Writer struct {
	repo      repository.AuditRepository
	events    chan Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

const defaultBufferSize = 256

// NewWriter creates and starts an audit writer.
func NewWriter(repo repository.AuditRepository) *Writer {
	w := &Writer{
		repo:   repo,
		events: make(chan Event, defaultBufferSize),
	}
	w.wg.Add(1)
	go w.drain()
	return w
}

// Emit queues an event for persistence. When the buffer is full the event is
// dropped with a warning rather than blocking the caller.
func (w *Writer) Emit(event Event) {
	select {
	case w.events <- event:
	default:
		log.Warnf("[Audit] Buffer full, dropping event %s for account %d", event.Action, event.TargetAccountID)
	}
}

// Close stops accepting events and flushes the remaining buffer.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.events)
	})
	w.wg.Wait()
}

func (w *Writer) drain() {
	defer w.wg.Done()
	for event := range w.events {
		row := &models.AuditEvent{
			EventUUID:       uuid.NewString(),
			Action:          event.Action,
			ActorID:         event.ActorID,
			TargetAccountID: event.TargetAccountID,
			Reason:          event.Reason,
			CreatedAt:       time.Now(),
		}
		if len(event.Metadata) > 0 {
			if raw, err := json.Marshal(event.Metadata); err == nil {
				row.Metadata = string(raw)
			}
		}
		if err := w.repo.Insert(row); err != nil {
			log.Errorf("[Audit] Failed to persist event %s: %v", event.Action, err)
		}
	}
}

// NopSink discards all events. Used in tests and as a fallback when no audit
// store is configured.
type NopSink struct{}

func (NopSink) Emit(Event) {}
