package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlist/harborlist/app/models"
)

type fakeAccountRepo struct {
	expired []models.Account
	listErr error
}

func (f *fakeAccountRepo) Create(account *models.Account) error { return nil }

func (f *fakeAccountRepo) GetByID(id uint) (*models.Account, error) {
	return nil, models.ErrAccountNotFound
}

func (f *fakeAccountRepo) UpdateWithVersion(account *models.Account) error { return nil }
func (f *fakeAccountRepo) BumpVersion(id uint) error                       { return nil }
func (f *fakeAccountRepo) Count() (int64, error)                           { return 0, nil }

func (f *fakeAccountRepo) FindExpired(now time.Time, limit, offset int) ([]models.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.expired) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.expired) {
		end = len(f.expired)
	}
	return f.expired[offset:end], nil
}

// fakeExpirer records which accounts were expired and can fail or refuse
// selected ids.
type fakeExpirer struct {
	mu      sync.Mutex
	calls   []uint
	failIDs map[uint]error
	notDue  map[uint]bool
}

func (f *fakeExpirer) ExpireIfDue(ctx context.Context, accountID uint, now time.Time) (bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, accountID)
	f.mu.Unlock()
	if err, ok := f.failIDs[accountID]; ok {
		return false, err
	}
	if f.notDue[accountID] {
		return false, nil
	}
	return true, nil
}

func expiredAccounts(n int) []models.Account {
	out := make([]models.Account, n)
	for i := range out {
		out[i] = models.Account{ID: uint(i + 1)}
	}
	return out
}

func TestRunSweepDowngradesAllCandidates(t *testing.T) {
	repo := &fakeAccountRepo{expired: expiredAccounts(7)}
	exp := &fakeExpirer{}
	s := NewSweeper(repo, exp)

	report := s.RunSweep(context.Background(), time.Now())

	assert.Equal(t, 7, report.Processed)
	assert.Equal(t, 7, report.Downgraded)
	assert.Empty(t, report.Failed)
	assert.Len(t, exp.calls, 7)
}

func TestRunSweepPagesCandidates(t *testing.T) {
	// More candidates than one page; every id must be visited exactly once.
	repo := &fakeAccountRepo{expired: expiredAccounts(pageSize*2 + 3)}
	exp := &fakeExpirer{}
	s := NewSweeper(repo, exp)

	report := s.RunSweep(context.Background(), time.Now())

	require.Equal(t, pageSize*2+3, report.Processed)
	seen := make(map[uint]int)
	for _, id := range exp.calls {
		seen[id]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "account %d processed %d times", id, n)
	}
	assert.Len(t, seen, pageSize*2+3)
}

func TestRunSweepIsolatesFailures(t *testing.T) {
	repo := &fakeAccountRepo{expired: expiredAccounts(5)}
	exp := &fakeExpirer{
		failIDs: map[uint]error{3: errors.New("deadlock")},
		notDue:  map[uint]bool{5: true}, // renewed between enumeration and processing
	}
	s := NewSweeper(repo, exp)

	report := s.RunSweep(context.Background(), time.Now())

	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 3, report.Downgraded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, uint(3), report.Failed[0].AccountID)
	assert.Contains(t, report.Failed[0].Error, "deadlock")
}

func TestRunSweepEmptyCandidateSet(t *testing.T) {
	repo := &fakeAccountRepo{}
	exp := &fakeExpirer{}
	s := NewSweeper(repo, exp)

	report := s.RunSweep(context.Background(), time.Now())

	assert.Zero(t, report.Processed)
	assert.Zero(t, report.Downgraded)
	assert.Empty(t, exp.calls)
}

func TestRunSweepEnumerationFailure(t *testing.T) {
	repo := &fakeAccountRepo{listErr: errors.New("connection refused")}
	exp := &fakeExpirer{}
	s := NewSweeper(repo, exp)

	report := s.RunSweep(context.Background(), time.Now())

	assert.Zero(t, report.Processed)
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Error, "connection refused")
	assert.Empty(t, exp.calls)
}

func TestManagerTriggerSweepStoresReport(t *testing.T) {
	repo := &fakeAccountRepo{expired: expiredAccounts(2)}
	exp := &fakeExpirer{}
	m := NewManager(NewSweeper(repo, exp))

	require.Nil(t, m.LastReport())

	report := m.TriggerSweep(context.Background())
	assert.Equal(t, 2, report.Downgraded)

	last := m.LastReport()
	require.NotNil(t, last)
	assert.Equal(t, 2, last.Downgraded)
}

func TestManagerStartStop(t *testing.T) {
	repo := &fakeAccountRepo{}
	m := NewManager(NewSweeper(repo, &fakeExpirer{}))

	m.Start()
	m.Start() // idempotent
	m.Stop()
	m.Stop() // idempotent

	// Restart works after a stop cycle.
	m.Start()
	m.Stop()
}
