package detect

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"overbridge/pkg/models"
)

// weakThreshold marks a candidate as a likely list/aggregate artifact.
const weakThreshold = 3

var weakTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\blist of\b`),
	regexp.MustCompile(`(?i)\bwatchlist\b`),
	regexp.MustCompile(`(?i)\bfilmography\b`),
	regexp.MustCompile(`(?i)\bcollection\b`),
	regexp.MustCompile(`(?i)\bguide\b`),
	regexp.MustCompile(`(?i)\bepisode guide\b`),
	regexp.MustCompile(`(?i)\btop\s+\d+\b`),
	regexp.MustCompile(`(?i)\btop\b.*\bmovies?\b`),
	regexp.MustCompile(`(?i)\bbest\b.*\bmovies?\b`),
	regexp.MustCompile(`(?i)\bmovies?\b.*\blist\b`),
	regexp.MustCompile(`(?i)\bimdb\b.*\btop\b`),
}

var weakSuffixes = []string{"movies", "films", "collections", "rankings"}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "of": true,
	"on": true, "the": true, "to": true, "with": true,
}

// isWeakDetection scores heuristics that push list-like or metadata-only
// matches into the weak bucket.
func isWeakDetection(c models.RawCandidate) bool {
	return weakScore(c, time.Now().Year()) >= weakThreshold
}

func weakScore(c models.RawCandidate, currentYear int) int {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return weakThreshold
	}

	normalized := strings.ToLower(title)
	score := 0

	if c.ReleaseYear == "" {
		score++
	} else if year, err := strconv.Atoi(c.ReleaseYear); err == nil {
		if year < 1900 || year > currentYear+1 {
			score += 2
		}
	}

	if matchesWeakPattern(title) {
		score += 3
	} else if hasWeakSuffix(normalized) {
		score += 2
	}

	words := strings.Fields(normalized)
	if len(words) >= 4 {
		stopwordCount := 0
		for _, word := range words {
			if stopwords[word] {
				stopwordCount++
			}
		}
		if stopwordCount >= (len(words)+1)/2 {
			score++
		}
	}

	if c.Source == "heading" && c.Poster == "" {
		score++
	}

	return score
}

func matchesWeakPattern(title string) bool {
	for _, re := range weakTitlePatterns {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

func hasWeakSuffix(normalized string) bool {
	for _, suffix := range weakSuffixes {
		if strings.HasSuffix(normalized, " "+suffix) {
			return true
		}
	}
	return false
}
