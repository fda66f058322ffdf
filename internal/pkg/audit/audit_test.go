package audit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlist/harborlist/app/models"
)

type recordingAuditRepo struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (r *recordingAuditRepo) Insert(event *models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *recordingAuditRepo) all() []models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditEvent(nil), r.events...)
}

func TestWriterPersistsEvents(t *testing.T) {
	repo := &recordingAuditRepo{}
	w := NewWriter(repo)

	w.Emit(Event{
		Action:          ActionMembershipActivated,
		ActorID:         7,
		TargetAccountID: 7,
		Metadata:        map[string]interface{}{"tier_id": models.TierDealerPro},
	})
	w.Emit(Event{Action: ActionDelegationDenied, ActorID: 9, TargetAccountID: 7, Reason: "OUT_OF_SCOPE"})
	w.Close()

	events := repo.all()
	require.Len(t, events, 2)
	assert.Equal(t, ActionMembershipActivated, events[0].Action)
	assert.NotEmpty(t, events[0].EventUUID)
	assert.Contains(t, events[0].Metadata, "dealer-pro")
	assert.Equal(t, "OUT_OF_SCOPE", events[1].Reason)
}

func TestEmitNeverBlocksWhenFull(t *testing.T) {
	// Writer with a closed drain would block a bare channel send; the
	// default-case drop keeps Emit non-blocking even when saturated.
	w := &Writer{repo: &recordingAuditRepo{}, events: make(chan Event, 1)}
	w.Emit(Event{Action: ActionCapabilityGranted})

	done := make(chan struct{})
	go func() {
		w.Emit(Event{Action: ActionCapabilityRevoked})
		close(done)
	}()
	<-done
}
