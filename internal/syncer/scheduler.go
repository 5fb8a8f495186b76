package syncer

import (
	"context"
	"sync"
	"time"

	"leettrack-sync/internal/domain"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron"
)

const uploadTimeout = 15 * time.Second

// Scheduler runs the opportunistic background sync: a periodic full pass
// plus a debounced flush after local mutations. It never acts before the
// session's bootstrap reconciliation has completed, so it can assume
// steady state.
type Scheduler struct {
	cron     *gocron.Scheduler
	api      CloudAPI
	session  *Session
	snapshot func() []domain.TopicProgress
	interval time.Duration
	debounce time.Duration

	mu      sync.Mutex
	dirty   bool
	dirtyAt time.Time
}

func NewScheduler(api CloudAPI, session *Session, snapshot func() []domain.TopicProgress, interval, debounce time.Duration) *Scheduler {
	return &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		api:      api,
		session:  session,
		snapshot: snapshot,
		interval: interval,
		debounce: debounce,
	}
}

func (s *Scheduler) Start() {
	s.cron.Every(s.interval).Do(s.periodicSync)
	s.cron.Every(s.debounce).Do(s.flushIfQuiet)
	s.cron.StartAsync()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// MarkDirty records a local mutation; the debounced flush picks it up once
// mutations pause.
func (s *Scheduler) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	s.dirtyAt = time.Now()
}

func (s *Scheduler) periodicSync() {
	if !s.session.Ready() {
		log.Debug("skipping periodic sync: bootstrap reconciliation pending")
		return
	}
	s.upload()
}

func (s *Scheduler) flushIfQuiet() {
	if !s.session.Ready() {
		return
	}

	s.mu.Lock()
	quiet := s.dirty && time.Since(s.dirtyAt) >= s.debounce
	if quiet {
		s.dirty = false
	}
	s.mu.Unlock()

	if quiet {
		s.upload()
	}
}

func (s *Scheduler) upload() {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	results, err := s.api.UploadProgress(ctx, s.snapshot(), false)
	if err != nil {
		log.Warnf("background sync failed, will retry on next trigger: %v", err)
		return
	}

	for _, result := range results {
		switch result.Status {
		case domain.SyncStatusConflict:
			// Steady state should not conflict; another device likely
			// wrote meanwhile. The next bootstrap will reconcile.
			log.Warnf("topic %d: cloud diverged during background sync", result.TopicID)
		case domain.SyncStatusError:
			log.Warnf("topic %d: sync error: %s", result.TopicID, result.Error)
		default:
			if result.Skipped {
				log.Debugf("topic %d: unchanged", result.TopicID)
			}
		}
	}
}
