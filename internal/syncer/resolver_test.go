package syncer

import (
	"testing"
	"time"

	"leettrack-sync/internal/domain"
	"leettrack-sync/internal/fingerprint"
)

func completedNumbers(progress []domain.TopicProgress) map[string]string {
	completed := make(map[string]string)
	for _, tp := range progress {
		for _, ch := range tp.Chapters {
			for _, ss := range ch.Subsections {
				for _, p := range ss.Problems {
					if p.Completed {
						completed[p.Number] = p.CompletedAt
					}
				}
			}
		}
	}
	return completed
}

func TestResolve_KeepLocal(t *testing.T) {
	local := []domain.TopicProgress{topicSnapshot(1, "1")}
	cloud := []domain.TopicProgress{topicSnapshot(1, "2")}

	result, uploadRequired, err := Resolve(domain.ResolutionLocal, local, cloud, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !uploadRequired {
		t.Error("keeping local must trigger a forced upload")
	}
	if !fingerprint.Equal(fingerprint.Compute(result), fingerprint.Compute(local)) {
		t.Error("result must match the local snapshot")
	}
}

func TestResolve_KeepCloud(t *testing.T) {
	local := []domain.TopicProgress{topicSnapshot(1, "1")}
	cloud := []domain.TopicProgress{topicSnapshot(1, "2")}

	result, uploadRequired, err := Resolve(domain.ResolutionCloud, local, cloud, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uploadRequired {
		t.Error("keeping cloud needs no upload, only a local write")
	}
	if !fingerprint.Equal(fingerprint.Compute(result), fingerprint.Compute(cloud)) {
		t.Error("result must match the cloud snapshot")
	}
}

func TestResolve_UnknownStrategy(t *testing.T) {
	if _, _, err := Resolve(domain.ResolutionStrategy("latest"), nil, nil, time.Now()); err == nil {
		t.Fatal("expected an error for an unknown strategy")
	}
}

func TestMergeAll_UnionOfCompletions(t *testing.T) {
	local := []domain.TopicProgress{topicSnapshot(1, "1", "2")}
	cloud := []domain.TopicProgress{topicSnapshot(1, "2", "3")}

	merged := MergeAll(local, cloud, time.Now())

	completed := completedNumbers(merged)
	for _, n := range []string{"1", "2", "3"} {
		if _, ok := completed[n]; !ok {
			t.Errorf("expected problem %s completed after merge", n)
		}
	}
}

func TestMergeAll_Commutative(t *testing.T) {
	now := time.Now()
	a := []domain.TopicProgress{topicSnapshot(1, "1")}
	b := []domain.TopicProgress{topicSnapshot(1, "3")}

	ab := fingerprint.Compute(MergeAll(a, b, now))
	ba := fingerprint.Compute(MergeAll(b, a, now))
	if !fingerprint.Equal(ab, ba) {
		t.Errorf("merge must be commutative on the completed set: %v vs %v", ab.IDs, ba.IDs)
	}
}

func TestMergeAll_SupersetOfBothSides(t *testing.T) {
	now := time.Now()
	local := []domain.TopicProgress{topicSnapshot(1, "1"), topicSnapshot(2, "2")}
	cloud := []domain.TopicProgress{topicSnapshot(1, "3")}

	merged := MergeAll(local, cloud, now)
	got := fingerprint.Compute(merged)

	for _, side := range [][]domain.TopicProgress{local, cloud} {
		for _, id := range fingerprint.Compute(side).IDs {
			found := false
			for _, mid := range got.IDs {
				if mid == id {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("merge lost completion %s", id)
			}
		}
	}
}

func TestMergeAll_CompletedAtPrefersLocalThenCloud(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	local := []domain.TopicProgress{topicSnapshot(1, "1")}
	local[0].Chapters[0].Subsections[0].Problems[0].CompletedAt = "2026-01-01T00:00:00Z"

	cloud := []domain.TopicProgress{topicSnapshot(1, "1", "2")}
	cloud[0].Chapters[0].Subsections[0].Problems[0].CompletedAt = "2026-02-02T00:00:00Z"
	cloud[0].Chapters[0].Subsections[0].Problems[1].CompletedAt = ""

	merged := MergeAll(local, cloud, now)
	completed := completedNumbers(merged)

	if completed["1"] != "2026-01-01T00:00:00Z" {
		t.Errorf("expected local timestamp for problem 1, got %q", completed["1"])
	}
	if completed["2"] != now.Format(time.RFC3339) {
		t.Errorf("expected fallback timestamp for problem 2, got %q", completed["2"])
	}
}

func TestMergeAll_LocalStructureWins(t *testing.T) {
	local := []domain.TopicProgress{topicSnapshot(1, "1")}
	cloud := []domain.TopicProgress{topicSnapshot(1, "2")}
	cloud[0].Chapters = append(cloud[0].Chapters, domain.Chapter{
		ID:    "ch-extra",
		Title: "Cloud Only",
		Subsections: []domain.Subsection{{
			ID:       "ss-extra",
			Problems: []domain.Problem{{Number: "99", Completed: true}},
		}},
	})

	merged := MergeAll(local, cloud, time.Now())

	if len(merged[0].Chapters) != len(local[0].Chapters) {
		t.Fatalf("expected %d chapters, got %d", len(local[0].Chapters), len(merged[0].Chapters))
	}
	if _, ok := completedNumbers(merged)["99"]; ok {
		t.Error("cloud-only structure must not survive the merge")
	}
}

func TestMergeAll_LocalOnlyTopicPreserved(t *testing.T) {
	local := []domain.TopicProgress{topicSnapshot(1, "1"), topicSnapshot(2, "2")}
	cloud := []domain.TopicProgress{topicSnapshot(1, "3")}

	merged := MergeAll(local, cloud, time.Now())
	if len(merged) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(merged))
	}
	if merged[1].TopicID != 2 {
		t.Errorf("expected topic 2 preserved, got %d", merged[1].TopicID)
	}
}

func TestMergeAll_DoesNotMutateInputs(t *testing.T) {
	local := []domain.TopicProgress{topicSnapshot(1, "1")}
	cloud := []domain.TopicProgress{topicSnapshot(1, "2")}
	before := fingerprint.Compute(local)

	MergeAll(local, cloud, time.Now())

	if !fingerprint.Equal(before, fingerprint.Compute(local)) {
		t.Error("merge mutated the local input")
	}
}
