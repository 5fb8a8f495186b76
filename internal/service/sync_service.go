package service

import (
	"strconv"
	"time"

	"leettrack-sync/internal/domain"
	"leettrack-sync/internal/fingerprint"
	"leettrack-sync/internal/repository"
)

type SyncService struct {
	progressRepo repository.ProgressRepository
}

func NewSyncService(progressRepo repository.ProgressRepository) *SyncService {
	return &SyncService{
		progressRepo: progressRepo,
	}
}

// FetchAll returns every stored topic's progress for a user, most recently
// updated first.
func (s *SyncService) FetchAll(userID string) ([]domain.ProgressEntry, error) {
	records, err := s.progressRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ProgressEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, domain.ProgressEntry{
			TopicID:    record.TopicID,
			Data:       record.Data,
			LastSyncAt: record.LastSyncAt,
			Version:    record.Version,
		})
	}

	return entries, nil
}

// UpsertBatch processes each topic independently and reports a per-topic
// result; one topic's failure never aborts the rest.
func (s *SyncService) UpsertBatch(userID string, req *domain.UploadRequest) []domain.TopicSyncResult {
	version := req.Version
	if version == "" {
		version = domain.DataVersion
	}

	results := make([]domain.TopicSyncResult, 0, len(req.TopicProgress))
	for _, tp := range req.TopicProgress {
		results = append(results, s.upsertOne(userID, tp, version, req.ForceOverwrite))
	}

	return results
}

func (s *SyncService) upsertOne(userID string, tp domain.TopicProgress, version string, force bool) domain.TopicSyncResult {
	topicID := strconv.Itoa(tp.TopicID)
	now := time.Now().UTC()
	tp.Normalize(now)

	existing, err := s.progressRepo.FindByUserAndTopic(userID, topicID)
	if err != nil {
		return domain.TopicSyncResult{
			TopicID: tp.TopicID,
			Status:  domain.SyncStatusError,
			Error:   err.Error(),
		}
	}

	if existing != nil && !force {
		stored := fingerprint.Compute([]domain.TopicProgress{existing.Data})
		incoming := fingerprint.Compute([]domain.TopicProgress{tp})

		// Identical content is the idempotent path: no write, no
		// updatedAt change.
		if fingerprint.Equal(stored, incoming) {
			updatedAt := existing.UpdatedAt
			return domain.TopicSyncResult{
				TopicID:   tp.TopicID,
				Status:    domain.SyncStatusSuccess,
				Skipped:   true,
				UpdatedAt: &updatedAt,
			}
		}

		cloudData := existing.Data
		cloudUpdatedAt := existing.UpdatedAt
		return domain.TopicSyncResult{
			TopicID:        tp.TopicID,
			Status:         domain.SyncStatusConflict,
			CloudData:      &cloudData,
			CloudUpdatedAt: &cloudUpdatedAt,
		}
	}

	record := &domain.SyncRecord{
		UserID:     userID,
		TopicID:    topicID,
		Data:       tp,
		Version:    version,
		LastSyncAt: now,
		UpdatedAt:  now,
	}

	if err := s.progressRepo.Upsert(record); err != nil {
		return domain.TopicSyncResult{
			TopicID: tp.TopicID,
			Status:  domain.SyncStatusError,
			Error:   err.Error(),
		}
	}

	updatedAt := now
	return domain.TopicSyncResult{
		TopicID:   tp.TopicID,
		Status:    domain.SyncStatusSuccess,
		UpdatedAt: &updatedAt,
	}
}

// Delete removes one topic's record, or every record for the user when
// topicID is empty.
func (s *SyncService) Delete(userID, topicID string) error {
	if topicID == "" {
		return s.progressRepo.DeleteAllForUser(userID)
	}
	return s.progressRepo.Delete(userID, topicID)
}
