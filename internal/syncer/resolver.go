package syncer

import (
	"fmt"
	"time"

	"leettrack-sync/internal/domain"

	"github.com/charmbracelet/log"
)

// Resolve applies a conflict resolution strategy. The returned bool tells
// the caller whether the result must be force-uploaded to the cloud:
// keeping local or merging adds completions the cloud may not have, while
// keeping cloud only needs a local write.
func Resolve(strategy domain.ResolutionStrategy, local, cloud []domain.TopicProgress, now time.Time) ([]domain.TopicProgress, bool, error) {
	switch strategy {
	case domain.ResolutionLocal:
		return local, true, nil
	case domain.ResolutionCloud:
		return cloud, false, nil
	case domain.ResolutionMerge:
		return MergeAll(local, cloud, now), true, nil
	default:
		return nil, false, fmt.Errorf("unknown resolution strategy: %s", strategy)
	}
}

// MergeAll merges topic by topic. Topics without a cloud counterpart keep
// the local side unchanged.
func MergeAll(local, cloud []domain.TopicProgress, now time.Time) []domain.TopicProgress {
	cloudByTopic := make(map[int]domain.TopicProgress, len(cloud))
	for _, tp := range cloud {
		cloudByTopic[tp.TopicID] = tp
	}

	merged := make([]domain.TopicProgress, 0, len(local))
	for _, localTopic := range local {
		cloudTopic, exists := cloudByTopic[localTopic.TopicID]
		if !exists {
			merged = append(merged, localTopic)
			continue
		}
		merged = append(merged, mergeTopic(localTopic, cloudTopic, now))
	}

	return merged
}

// mergeTopic walks both sides positionally: the structure is shipped
// reference data, assumed identical on both sides by construction. The
// merged completed flag is the OR of both sides; completedAt takes the
// first non-empty of (local, cloud), falling back to now. Structural
// fields always come from the local side. When the structures disagree in
// length, only the overlapping prefix is merged: the local-only tail is
// preserved as-is, the cloud-only tail is dropped.
func mergeTopic(local, cloud domain.TopicProgress, now time.Time) domain.TopicProgress {
	merged := local
	merged.Chapters = make([]domain.Chapter, len(local.Chapters))
	copy(merged.Chapters, local.Chapters)

	if extra := len(cloud.Chapters) - len(local.Chapters); extra > 0 {
		log.Warnf("merge: dropping %d cloud-only chapter(s) in topic %d; local reference data may be outdated", extra, local.TopicID)
	}

	for ci := range merged.Chapters {
		if ci >= len(cloud.Chapters) {
			break
		}
		cloudChapter := cloud.Chapters[ci]

		subsections := make([]domain.Subsection, len(merged.Chapters[ci].Subsections))
		copy(subsections, merged.Chapters[ci].Subsections)
		merged.Chapters[ci].Subsections = subsections

		for si := range subsections {
			if si >= len(cloudChapter.Subsections) {
				break
			}
			cloudSubsection := cloudChapter.Subsections[si]

			problems := make([]domain.Problem, len(subsections[si].Problems))
			copy(problems, subsections[si].Problems)
			subsections[si].Problems = problems

			for pi := range problems {
				if pi >= len(cloudSubsection.Problems) {
					break
				}
				cloudProblem := cloudSubsection.Problems[pi]

				if problems[pi].Completed || cloudProblem.Completed {
					completedAt := problems[pi].CompletedAt
					if completedAt == "" {
						completedAt = cloudProblem.CompletedAt
					}
					if completedAt == "" {
						completedAt = now.UTC().Format(time.RFC3339)
					}
					problems[pi].Completed = true
					problems[pi].CompletedAt = completedAt
				}
			}
		}
	}

	return merged
}
