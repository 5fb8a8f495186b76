package domain

import "time"

// DataVersion is the current data-format version. Uploads carry it and the
// reconciler treats any cloud record tagged with a different version as
// stale schema.
const DataVersion = "3.1.0"

type Problem struct {
	ID           string `json:"id"`
	TopicID      int    `json:"topicId"`
	ChapterID    string `json:"chapterId,omitempty"`
	SubsectionID string `json:"subsectionId,omitempty"`
	Number       string `json:"number"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Difficulty   int    `json:"difficulty,omitempty"`
	Completed    bool   `json:"completed"`
	CompletedAt  string `json:"completedAt,omitempty"`
}

type Subsection struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Problems []Problem `json:"problems"`
}

type Chapter struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Subsections []Subsection `json:"subsections"`
}

// TopicProgress is the unit of synchronization. Chapters hold the
// authoritative structured representation; Problems is the legacy flat list
// kept for backward compatibility and preserved on every read/write.
type TopicProgress struct {
	TopicID  int       `json:"topicId"`
	Chapters []Chapter `json:"chapters"`
	Problems []Problem `json:"problems"`
}

// Normalize enforces the completion invariant on every problem: CompletedAt
// is cleared when the problem is not completed, and backfilled with now when
// a completed problem carries no timestamp (legacy data).
func (tp *TopicProgress) Normalize(now time.Time) {
	stamp := now.UTC().Format(time.RFC3339)

	normalize := func(p *Problem) {
		if !p.Completed {
			p.CompletedAt = ""
		} else if p.CompletedAt == "" {
			p.CompletedAt = stamp
		}
	}

	for ci := range tp.Chapters {
		for si := range tp.Chapters[ci].Subsections {
			for pi := range tp.Chapters[ci].Subsections[si].Problems {
				normalize(&tp.Chapters[ci].Subsections[si].Problems[pi])
			}
		}
	}
	for pi := range tp.Problems {
		normalize(&tp.Problems[pi])
	}
}

// ToggleProblem flips the completed flag of the problem with the given
// number inside the topic, returning false when no such problem exists.
func ToggleProblem(progress []TopicProgress, topicID int, number string, now time.Time) bool {
	for ti := range progress {
		if progress[ti].TopicID != topicID {
			continue
		}
		for ci := range progress[ti].Chapters {
			for si := range progress[ti].Chapters[ci].Subsections {
				problems := progress[ti].Chapters[ci].Subsections[si].Problems
				for pi := range problems {
					if problems[pi].Number != number {
						continue
					}
					problems[pi].Completed = !problems[pi].Completed
					if problems[pi].Completed {
						problems[pi].CompletedAt = now.UTC().Format(time.RFC3339)
					} else {
						problems[pi].CompletedAt = ""
					}
					return true
				}
			}
		}
	}
	return false
}
