package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"leettrack-sync/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type ProgressRepository interface {
	FindByUserAndTopic(userID, topicID string) (*domain.SyncRecord, error)
	ListByUser(userID string) ([]*domain.SyncRecord, error)
	Upsert(record *domain.SyncRecord) error
	Delete(userID, topicID string) error
	DeleteAllForUser(userID string) error
}

type progressRepository struct {
	client *kivik.Client
	dbName string
}

func NewProgressRepository(client *kivik.Client, dbName string) ProgressRepository {
	return &progressRepository{
		client: client,
		dbName: dbName,
	}
}

func progressDocID(userID, topicID string) string {
	return fmt.Sprintf("progress:%s:%s", userID, topicID)
}

// FindByUserAndTopic returns (nil, nil) when no record exists so callers can
// distinguish "first upload" from a storage failure.
func (r *progressRepository) FindByUserAndTopic(userID, topicID string) (*domain.SyncRecord, error) {
	db := r.client.DB(r.dbName)

	row := db.Get(context.Background(), progressDocID(userID, topicID))

	var record domain.SyncRecord
	if err := row.ScanDoc(&record); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find progress record: %w", err)
	}

	return &record, nil
}

// ListByUser returns every topic's record, most recently updated first.
func (r *progressRepository) ListByUser(userID string) ([]*domain.SyncRecord, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"user_id":  userID,
			"topic_id": map[string]interface{}{"$exists": true},
		},
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list progress records: %w", err)
	}
	defer rows.Close()

	var records []*domain.SyncRecord
	for rows.Next() {
		var record domain.SyncRecord
		if err := rows.ScanDoc(&record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})

	return records, nil
}

func (r *progressRepository) Upsert(record *domain.SyncRecord) error {
	db := r.client.DB(r.dbName)
	docID := progressDocID(record.UserID, record.TopicID)

	var existingDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&existingDoc); err != nil {
		if kivik.HTTPStatus(err) != http.StatusNotFound {
			return fmt.Errorf("failed to fetch progress record for upsert: %w", err)
		}

		if _, err := db.Put(context.Background(), docID, record); err != nil {
			return fmt.Errorf("failed to create progress record: %w", err)
		}
		return nil
	}

	existingDoc["data"] = record.Data
	existingDoc["version"] = record.Version
	existingDoc["last_sync_at"] = record.LastSyncAt
	existingDoc["updated_at"] = time.Now()

	if _, err := db.Put(context.Background(), docID, existingDoc); err != nil {
		return fmt.Errorf("failed to update progress record: %w", err)
	}

	return nil
}

func (r *progressRepository) Delete(userID, topicID string) error {
	db := r.client.DB(r.dbName)
	docID := progressDocID(userID, topicID)

	rev, err := db.GetRev(context.Background(), docID)
	if err != nil {
		return fmt.Errorf("failed to fetch progress record for delete: %w", err)
	}

	if _, err := db.Delete(context.Background(), docID, rev); err != nil {
		return fmt.Errorf("failed to delete progress record: %w", err)
	}

	return nil
}

func (r *progressRepository) DeleteAllForUser(userID string) error {
	records, err := r.ListByUser(userID)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := r.Delete(userID, record.TopicID); err != nil {
			return err
		}
	}

	return nil
}
