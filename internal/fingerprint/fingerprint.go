// Package fingerprint computes order-independent completion signatures for
// progress snapshots. Two snapshots with equal fingerprints are semantically
// identical for sync purposes regardless of structural differences such as
// titles, ordering or chapter ids.
package fingerprint

import (
	"fmt"
	"sort"

	"leettrack-sync/internal/domain"
)

// Two independent rolling hashes keep an accidental collision on one
// multiplier from coinciding with the other.
const (
	multiplierA = 31
	multiplierB = 37
)

// Fingerprint is the signature of which problems are marked complete. IDs
// holds the sorted "{topicId}-{number}" identifiers and doubles as the
// debug-inspectable form; the hash pair plus count is the cheap comparison
// form.
type Fingerprint struct {
	HashA int64
	HashB int64
	Count int
	IDs   []string
}

// Compute traverses every topic, chapter, subsection and problem of the
// snapshot. Nil or missing collections at any level contribute nothing;
// malformed input never panics.
func Compute(progress []domain.TopicProgress) Fingerprint {
	var ids []string
	for _, tp := range progress {
		for _, ch := range tp.Chapters {
			for _, ss := range ch.Subsections {
				for _, p := range ss.Problems {
					if p.Completed {
						ids = append(ids, fmt.Sprintf("%d-%s", tp.TopicID, p.Number))
					}
				}
			}
		}
	}
	sort.Strings(ids)

	var hashA, hashB int64
	for _, id := range ids {
		for _, ch := range id {
			hashA = hashA*multiplierA + int64(ch)
			hashB = hashB*multiplierB + int64(ch)
		}
	}

	count := len(ids)
	return Fingerprint{
		HashA: hashA ^ int64(count),
		HashB: hashB ^ int64(count),
		Count: count,
		IDs:   ids,
	}
}

// Empty reports whether the snapshot has zero completed problems. Empty is a
// distinct state, not a degenerate "identical": an empty cloud must still
// receive an upload rather than a no-op.
func (f Fingerprint) Empty() bool {
	return f.Count == 0
}

// Equal compares two fingerprints. The hash pair and count are the fast
// path: equal sets always produce equal hashes, so any disagreement proves
// the sets differ. Hash agreement alone is not trusted; the identifier sets
// are compared as the authoritative check.
func Equal(a, b Fingerprint) bool {
	if a.Count != b.Count || a.HashA != b.HashA || a.HashB != b.HashB {
		return false
	}
	return sameIDSet(a.IDs, b.IDs)
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, id := range a {
		seen[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}
