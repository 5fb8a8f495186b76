package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"leettrack-sync/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func defaultProgress() []domain.TopicProgress {
	return []domain.TopicProgress{
		{
			TopicID: 1,
			Chapters: []domain.Chapter{
				{
					ID: "ch1",
					Subsections: []domain.Subsection{
						{ID: "ss1", Problems: []domain.Problem{
							{ID: "p1", TopicID: 1, Number: "1"},
						}},
					},
				},
			},
		},
	}
}

func TestKVRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set("some-key", "some-value"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := s.Get("some-key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() did not find written key")
	}
	if value != "some-value" {
		t.Errorf("Get() = %q, want %q", value, "some-value")
	}

	if err := s.Set("some-key", "updated"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	value, _, _ = s.Get("some-key")
	if value != "updated" {
		t.Errorf("Get() after overwrite = %q, want %q", value, "updated")
	}

	if err := s.Delete("some-key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, found, _ = s.Get("some-key")
	if found {
		t.Error("key still present after Delete()")
	}
}

func TestLoadProgressInitializesFromDefaults(t *testing.T) {
	s := openTestStore(t)

	progress, err := s.LoadProgress(defaultProgress())
	if err != nil {
		t.Fatalf("LoadProgress() error = %v", err)
	}
	if len(progress) != 1 || progress[0].TopicID != 1 {
		t.Fatalf("unexpected initial progress: %+v", progress)
	}

	version, found, _ := s.Get(VersionKey)
	if !found || version != domain.DataVersion {
		t.Errorf("version key = %q (found=%v), want %q", version, found, domain.DataVersion)
	}
}

func TestSaveAndReloadProgress(t *testing.T) {
	s := openTestStore(t)

	progress, _ := s.LoadProgress(defaultProgress())
	progress[0].Chapters[0].Subsections[0].Problems[0].Completed = true
	progress[0].Chapters[0].Subsections[0].Problems[0].CompletedAt = time.Now().UTC().Format(time.RFC3339)

	if err := s.SaveProgress(progress); err != nil {
		t.Fatalf("SaveProgress() error = %v", err)
	}

	reloaded, err := s.LoadProgress(nil)
	if err != nil {
		t.Fatalf("LoadProgress() after save error = %v", err)
	}
	if !reloaded[0].Chapters[0].Subsections[0].Problems[0].Completed {
		t.Error("completion lost across save/reload")
	}
}

func TestLegacyMigrationWritesDatedBackup(t *testing.T) {
	s := openTestStore(t)

	legacy := []domain.TopicProgress{
		{TopicID: 1, Problems: []domain.Problem{
			{ID: "p1", TopicID: 1, Number: "1", Completed: true, CompletedAt: "2023-05-01T00:00:00Z"},
		}},
	}
	raw, _ := json.Marshal(legacy)
	if err := s.Set(LegacyProgressKey, string(raw)); err != nil {
		t.Fatalf("seeding legacy key failed: %v", err)
	}

	progress, err := s.LoadProgress(defaultProgress())
	if err != nil {
		t.Fatalf("LoadProgress() error = %v", err)
	}

	if len(progress[0].Problems) != 1 || !progress[0].Problems[0].Completed {
		t.Error("legacy flat problem list not preserved through migration")
	}
	if len(progress[0].Chapters) != 1 {
		t.Error("chapter structure not taken from defaults during migration")
	}

	_, found, _ := s.Get(LegacyProgressKey)
	if found {
		t.Error("legacy key still present after migration")
	}

	backupKey := fmt.Sprintf("%s-backup-%s", LegacyProgressKey, time.Now().Format("2006-01-02"))
	backup, found, _ := s.Get(backupKey)
	if !found {
		t.Fatal("dated backup key not written before legacy deletion")
	}
	if backup != string(raw) {
		t.Error("backup does not match original legacy value")
	}
}

func TestMalformedLegacyFallsBackToDefaults(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set(LegacyProgressKey, "{not json"); err != nil {
		t.Fatalf("seeding legacy key failed: %v", err)
	}

	progress, err := s.LoadProgress(defaultProgress())
	if err != nil {
		t.Fatalf("LoadProgress() error = %v", err)
	}
	if len(progress) != 1 || progress[0].TopicID != 1 {
		t.Errorf("expected defaults on malformed legacy data, got %+v", progress)
	}

	backupKey := fmt.Sprintf("%s-backup-%s", LegacyProgressKey, time.Now().Format("2006-01-02"))
	if _, found, _ := s.Get(backupKey); !found {
		t.Error("backup should be written even for malformed legacy data")
	}
}
