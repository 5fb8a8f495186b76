// Package syncer drives reconciliation between the agent's local progress
// store and the cloud copy: the bootstrap decision procedure, the conflict
// resolution strategies, and the background sync schedule.
package syncer

import (
	"context"
	"errors"
	"sync"

	"leettrack-sync/internal/client"
	"leettrack-sync/internal/domain"
	"leettrack-sync/internal/fingerprint"

	"github.com/charmbracelet/log"
)

// CloudAPI is the slice of the sync client the reconciler needs.
type CloudAPI interface {
	FetchProgress(ctx context.Context) ([]domain.ProgressEntry, error)
	UploadProgress(ctx context.Context, progress []domain.TopicProgress, forceOverwrite bool) ([]domain.TopicSyncResult, error)
}

type Decision string

const (
	// DecisionNoop: cloud unavailable this cycle; retry on the next
	// scheduled trigger, local usage unaffected.
	DecisionNoop Decision = "noop"
	// DecisionAdoptCloud: persist the cloud snapshot locally.
	DecisionAdoptCloud Decision = "adopt-cloud"
	// DecisionUploadLocal: the local snapshot was pushed to the cloud.
	DecisionUploadLocal Decision = "upload-local"
	// DecisionUploadForced: stale-schema cloud data was replaced wholesale.
	DecisionUploadForced Decision = "upload-forced"
	// DecisionConflict: both sides diverge; the user must choose.
	DecisionConflict Decision = "conflict"
)

type Outcome struct {
	Decision Decision
	Reason   string
	Local    []domain.TopicProgress
	Cloud    []domain.TopicProgress
	LocalFP  fingerprint.Fingerprint
	CloudFP  fingerprint.Fingerprint
}

// Session holds the per-authenticated-session reconciliation state. The
// started flag is set synchronously before the first fetch begins so a
// second concurrent bootstrap attempt never starts, and it is never reset
// for the lifetime of the session.
type Session struct {
	mu      sync.Mutex
	started bool
	done    bool
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) tryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.started = true
	return true
}

// FinishBootstrap marks reconciliation complete. Background sync stays idle
// until this is set; after a conflict outcome the caller sets it once the
// user's resolution has been applied.
func (s *Session) FinishBootstrap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

// Ready reports whether bootstrap reconciliation has completed.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

type Reconciler struct {
	api CloudAPI
}

func NewReconciler(api CloudAPI) *Reconciler {
	return &Reconciler{api: api}
}

// Bootstrap runs the reconciliation decision procedure at most once per
// session. It executes upload decisions itself; adopt-cloud and conflict
// outcomes are returned for the caller to apply. A nil outcome means a
// bootstrap already ran for this session.
func (r *Reconciler) Bootstrap(ctx context.Context, sess *Session, local []domain.TopicProgress) (*Outcome, error) {
	if !sess.tryBegin() {
		return nil, nil
	}

	entries, err := r.api.FetchProgress(ctx)
	if err != nil {
		sess.FinishBootstrap()
		if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrForbidden) {
			log.Warnf("cloud sync unavailable for this session: %v", err)
			return &Outcome{Decision: DecisionNoop, Reason: "no cloud access"}, nil
		}
		log.Warnf("cloud fetch failed, will retry on next sync trigger: %v", err)
		return &Outcome{Decision: DecisionNoop, Reason: "fetch failed"}, nil
	}

	if len(entries) == 0 {
		_, err := r.api.UploadProgress(ctx, local, false)
		sess.FinishBootstrap()
		if err != nil {
			return &Outcome{Decision: DecisionUploadLocal, Local: local}, err
		}
		return &Outcome{Decision: DecisionUploadLocal, Reason: "cloud has no records", Local: local}, nil
	}

	// Stale-schema cloud data is never merged, only replaced; the local
	// side already migrated.
	for _, entry := range entries {
		if entry.Version != domain.DataVersion {
			_, err := r.api.UploadProgress(ctx, local, true)
			sess.FinishBootstrap()
			if err != nil {
				return &Outcome{Decision: DecisionUploadForced, Local: local}, err
			}
			return &Outcome{
				Decision: DecisionUploadForced,
				Reason:   "stale cloud version " + entry.Version,
				Local:    local,
			}, nil
		}
	}

	cloud := cloudSnapshot(entries)
	localFP := fingerprint.Compute(local)
	cloudFP := fingerprint.Compute(cloud)

	outcome := &Outcome{
		Local:   local,
		Cloud:   cloud,
		LocalFP: localFP,
		CloudFP: cloudFP,
	}

	switch {
	case localFP.Empty():
		// Nothing local to protect.
		outcome.Decision = DecisionAdoptCloud
		outcome.Reason = "local has no completions"
		sess.FinishBootstrap()

	case cloudFP.Empty():
		if _, err := r.api.UploadProgress(ctx, local, true); err != nil {
			outcome.Decision = DecisionUploadLocal
			sess.FinishBootstrap()
			return outcome, err
		}
		outcome.Decision = DecisionUploadLocal
		outcome.Reason = "cloud has no completions"
		sess.FinishBootstrap()

	case fingerprint.Equal(localFP, cloudFP):
		// Both sides agree; adopt the cloud representation so every
		// device converges on one serialized form.
		outcome.Decision = DecisionAdoptCloud
		outcome.Reason = "fingerprints match"
		sess.FinishBootstrap()

	default:
		outcome.Decision = DecisionConflict
		// The caller finishes the session after the user resolves.
	}

	return outcome, nil
}

func cloudSnapshot(entries []domain.ProgressEntry) []domain.TopicProgress {
	progress := make([]domain.TopicProgress, 0, len(entries))
	for _, entry := range entries {
		progress = append(progress, entry.Data)
	}
	return progress
}
