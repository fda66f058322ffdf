package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/harborlist/harborlist/app/repository"
	"github.com/harborlist/harborlist/internal/pkg/metrics/counter"
)

const (
	defaultWorkerCount = 5
	pageSize           = 100
)

// Expirer downgrades a single account if its membership is due. The
// membership service satisfies it.
type Expirer interface {
	ExpireIfDue(ctx context.Context, accountID uint, now time.Time) (bool, error)
}

// SweepFailure records one account the sweep could not process.
type SweepFailure struct {
	AccountID uint   `json:"account_id"`
	Error     string `json:"error"`
}

// SweepReport summarizes one sweep run. Processed counts every candidate
// looked at; Downgraded counts the subset whose membership was actually
// expired. Failures never abort the run.
type SweepReport struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Processed  int            `json:"processed"`
	Downgraded int            `json:"downgraded"`
	Failed     []SweepFailure `json:"failed,omitempty"`
}

// Sweeper finds accounts whose premium membership has lapsed and downgrades
// them through the membership service. Work is spread over a bounded worker
// pool; each account is processed independently so one bad row cannot stall
// the rest.
type Sweeper struct {
	accounts repository.AccountRepository
	expirer  Expirer
	workers  int
}

// NewSweeper creates a sweeper with the default worker count.
func NewSweeper(accounts repository.AccountRepository, expirer Expirer) *Sweeper {
	return &Sweeper{
		accounts: accounts,
		expirer:  expirer,
		workers:  defaultWorkerCount,
	}
}

// RunSweep executes one full sweep at the given instant and returns the
// report. Candidate ids are collected up front: expiring an account removes
// it from the candidate predicate, which would otherwise shift pages under a
// paging loop and skip rows.
func (s *Sweeper) RunSweep(ctx context.Context, now time.Time) SweepReport {
	report := SweepReport{StartedAt: now}

	ids, err := s.collectCandidates(now)
	if err != nil {
		log.Errorf("[Sweeper] Failed to enumerate expired accounts: %v", err)
		report.Failed = append(report.Failed, SweepFailure{Error: err.Error()})
		report.FinishedAt = time.Now()
		return report
	}
	if len(ids) == 0 {
		report.FinishedAt = time.Now()
		return report
	}

	log.Infof("[Sweeper] Sweeping %d candidate accounts", len(ids))

	workers := s.workers
	if workers > len(ids) {
		workers = len(ids)
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		idCh = make(chan uint)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idCh {
				downgraded, err := s.expirer.ExpireIfDue(ctx, id, now)
				mu.Lock()
				report.Processed++
				switch {
				case err != nil:
					report.Failed = append(report.Failed, SweepFailure{AccountID: id, Error: err.Error()})
				case downgraded:
					report.Downgraded++
				}
				mu.Unlock()
			}
		}()
	}
	for _, id := range ids {
		idCh <- id
	}
	close(idCh)
	wg.Wait()

	report.FinishedAt = time.Now()
	if err := counter.AddSweepDowngrades(report.Downgraded); err != nil {
		log.Warnf("[Sweeper] Failed to record sweep counters: %v", err)
	}
	log.Infof("[Sweeper] Sweep done: processed=%d downgraded=%d failed=%d",
		report.Processed, report.Downgraded, len(report.Failed))
	return report
}

// collectCandidates pages through the expired-account index and returns the
// full id set for this run.
func (s *Sweeper) collectCandidates(now time.Time) ([]uint, error) {
	var ids []uint
	for offset := 0; ; offset += pageSize {
		accounts, err := s.accounts.FindExpired(now, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, account := range accounts {
			ids = append(ids, account.ID)
		}
		if len(accounts) < pageSize {
			return ids, nil
		}
	}
}
