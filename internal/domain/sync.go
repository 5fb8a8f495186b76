package domain

import "time"

// SyncRecord is the stored server-side copy of one topic's progress for one
// user. Created on first upload, updated via upsert, never implicitly
// deleted.
type SyncRecord struct {
	UserID     string        `json:"user_id"`
	TopicID    string        `json:"topic_id"`
	Data       TopicProgress `json:"data"`
	Version    string        `json:"version"`
	LastSyncAt time.Time     `json:"last_sync_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type ProgressEntry struct {
	TopicID    string        `json:"topicId"`
	Data       TopicProgress `json:"data"`
	LastSyncAt time.Time     `json:"lastSyncAt"`
	Version    string        `json:"version"`
}

type FetchProgressResponse struct {
	Progress []ProgressEntry `json:"progress"`
}

type UploadRequest struct {
	TopicProgress  []TopicProgress `json:"topicProgress" validate:"required,min=1"`
	ForceOverwrite bool            `json:"forceOverwrite"`
	Version        string          `json:"version"`
}

type SyncStatus string

const (
	SyncStatusSuccess  SyncStatus = "success"
	SyncStatusConflict SyncStatus = "conflict"
	SyncStatusError    SyncStatus = "error"
)

// TopicSyncResult reports the outcome of one topic's upsert. Batch uploads
// carry one result per topic so a single failure never hides the rest.
type TopicSyncResult struct {
	TopicID        int            `json:"topicId"`
	Status         SyncStatus     `json:"status"`
	Skipped        bool           `json:"skipped,omitempty"`
	UpdatedAt      *time.Time     `json:"updatedAt,omitempty"`
	CloudData      *TopicProgress `json:"cloudData,omitempty"`
	CloudUpdatedAt *time.Time     `json:"cloudUpdatedAt,omitempty"`
	Error          string         `json:"error,omitempty"`
}

type UploadResponse struct {
	Results []TopicSyncResult `json:"results"`
}

type ResolutionStrategy string

const (
	ResolutionLocal ResolutionStrategy = "local"
	ResolutionCloud ResolutionStrategy = "cloud"
	ResolutionMerge ResolutionStrategy = "merge"
)
