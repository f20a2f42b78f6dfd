package detect

import (
	"strings"

	"overbridge/pkg/models"
	"overbridge/pkg/textutil"
)

// Result splits reconciled candidates into likely titles and weak detections
// (list/aggregate page artifacts). Ordering within each bucket follows the
// flattening order of the dedup pass.
type Result struct {
	Items []models.ReconciledCandidate `json:"items"`
	Weak  []models.ReconciledCandidate `json:"weakDetections"`
}

// Reconcile deduplicates the union of parser outputs by normalized
// title+year, truncates to limit, cleans the survivors and classifies each
// as weak or strong. Candidates with empty titles are dropped up front.
func Reconcile(raw []models.RawCandidate, limit int) Result {
	if limit < models.DetectionLimitMin || limit > models.DetectionLimitMax {
		limit = models.DetectionLimitDefault
	}

	deduped := dedupe(raw, limit)

	result := Result{}
	for _, candidate := range deduped {
		candidate = postProcess(candidate)
		reconciled := models.ReconciledCandidate{
			RawCandidate: candidate,
			Weak:         isWeakDetection(candidate),
		}
		if reconciled.Weak {
			result.Weak = append(result.Weak, reconciled)
		} else {
			result.Items = append(result.Items, reconciled)
		}
	}
	return result
}

// dedupe groups candidates into buckets keyed by normalized title and merges
// entries whose release years are compatible. Two candidates with different,
// both-present years stay separate entries in the same bucket. The flattened
// output is truncated to limit here so downstream enrichment never sees
// excess candidates.
func dedupe(raw []models.RawCandidate, limit int) []models.RawCandidate {
	buckets := make(map[string][]models.RawCandidate)
	var order []string

	for _, candidate := range raw {
		if strings.TrimSpace(candidate.Title) == "" {
			continue
		}
		key := textutil.NormalizeTitle(candidate.Title)
		if key == "" {
			continue
		}

		candidate.Title = strings.TrimSpace(candidate.Title)
		candidate.ReleaseYear = textutil.ExtractYear(candidate.ReleaseYear)

		bucket, seen := buckets[key]
		if !seen {
			order = append(order, key)
		}

		merged := false
		for i, existing := range bucket {
			if sameRelease(existing.ReleaseYear, candidate.ReleaseYear) {
				bucket[i] = preferCandidate(existing, candidate)
				merged = true
				break
			}
		}
		if !merged {
			bucket = append(bucket, candidate)
		}
		buckets[key] = bucket
	}

	var out []models.RawCandidate
	for _, key := range order {
		out = append(out, buckets[key]...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// sameRelease treats a missing year as compatible with any year: year absence
// is not evidence of a different release. Deliberate recall-over-precision
// policy; it can merge two same-titled works when neither page carries a
// year.
func sameRelease(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return a == b
}

// preferCandidate keeps the more complete of two candidates for the same
// release; ties keep the earlier one.
func preferCandidate(current, incoming models.RawCandidate) models.RawCandidate {
	if completenessScore(incoming) > completenessScore(current) {
		return incoming
	}
	return current
}

func completenessScore(c models.RawCandidate) int {
	score := 0
	if c.Poster != "" {
		score += 2
	}
	if c.Subtitle != "" {
		score++
	}
	if c.ReleaseYear != "" {
		score++
	}
	return score
}

// postProcess cleans a surviving candidate: strips noise suffixes from the
// title once more (parsers may already have done so), backfills a missing
// year from the cleaned title and defaults the media type.
func postProcess(c models.RawCandidate) models.RawCandidate {
	trimmed := strings.TrimSpace(c.Title)
	cleaned := textutil.StripTitleNoise(trimmed)
	if cleaned == "" {
		cleaned = trimmed
	}

	c.Title = cleaned
	if c.ReleaseYear == "" {
		c.ReleaseYear = textutil.ExtractYear(cleaned)
	}
	c.MediaType = models.NormalizeMediaType(c.MediaType)
	return c
}
