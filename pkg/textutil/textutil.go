package textutil

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Phrases frequently appended to video titles (trailers, clips, format tags)
// that should be ignored when building a search query.
var noisePhrases = []string{
	"official trailer",
	"trailer",
	"teaser",
	"teaser trailer",
	"final trailer",
	"clip",
	"movie clip",
	"behind the scenes",
	"bts",
	"interview",
	"featurette",
	"hd",
	"4k",
	"2024 new movie",
	"english subtitles",
}

// Ordered suffix patterns stripped from titles before comparison. Applied
// repeatedly until the title stops changing; each pattern only ever shortens
// its input so the loop terminates, but stripIterationCap guards against a
// future pattern accidentally creating a cycle.
var titleNoiseSuffixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[-–—|:]\s*(imdb|tmdb|rotten tomatoes|rottentomatoes|metacritic|the numbers|official site|official trailer|trailer|teaser|watch online|full movie|movie review|netflix|prime video|amazon prime|disney\+|hulu|hbomax|max)\s*$`),
	regexp.MustCompile(`(?i)\s+(movie|film|films)\s*$`),
	regexp.MustCompile(`\s*\((19|20)\d{2}\)\s*$`),
	regexp.MustCompile(`\s+(19|20)\d{2}\s*$`),
}

const stripIterationCap = 10

var (
	spaceRun        = regexp.MustCompile(`\s+`)
	nonWordRun      = regexp.MustCompile(`[^\w\s]`)
	dashRun         = regexp.MustCompile(`[|\-–—]+`)
	yearToken       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	parenYear       = regexp.MustCompile(`\((\d{4})\)`)
	titleSeparator  = regexp.MustCompile(`[|\-–—:]`)
	noisePhraseExps = compileNoisePhrases()
)

func compileNoisePhrases() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(noisePhrases))
	for _, phrase := range noisePhrases {
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(phrase)+`\b`))
	}
	return out
}

// NormalizeText canonicalizes a string for reliable comparisons: Unicode
// NFKC, whitespace collapsed to single spaces, trimmed.
func NormalizeText(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(norm.NFKC.String(s), " "))
}

// StripNoisePhrases removes noisy tokens commonly appended to video titles
// (trailer tags, format markers) before searching the catalog.
func StripNoisePhrases(s string) string {
	text := NormalizeText(strings.ToLower(s))
	for _, re := range noisePhraseExps {
		text = re.ReplaceAllString(text, "")
	}
	text = dashRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}

// StripTitleNoise removes site names, trailing years and format suffixes from
// a title. Patterns are applied in order until the title stops changing.
func StripTitleNoise(s string) string {
	result := s
	for i := 0; i < stripIterationCap; i++ {
		previous := result
		for _, re := range titleNoiseSuffixPatterns {
			result = re.ReplaceAllString(result, "")
		}
		result = strings.TrimSpace(result)
		if result == "" || result == previous {
			break
		}
	}
	return result
}

// NormalizeTitle reduces a title to a canonical dedup key: noise suffixes
// stripped, Unicode compatibility-decomposed, lowercased, collapsed to
// alphanumeric-plus-space tokens. NormalizeTitle is idempotent.
func NormalizeTitle(s string) string {
	if s == "" {
		return ""
	}
	stripped := StripTitleNoise(s)
	folded := norm.NFKD.String(stripped)
	folded = nonWordRun.ReplaceAllString(folded, " ")
	folded = strings.ToLower(folded)
	folded = strings.TrimSpace(spaceRun.ReplaceAllString(folded, " "))
	// Folding can expose a new strippable suffix ("The Movie." becomes
	// "the movie"), so strip once more to keep the result a fixed point.
	return StripTitleNoise(folded)
}

// ExtractYear returns the first plausible 4-digit release year (19xx/20xx)
// found in text, or an empty string.
func ExtractYear(text string) string {
	return yearToken.FindString(text)
}

// ExtractTitleAndYear pulls a sanitized search query and an optional year out
// of a noisy title such as "Dune: Part Two (2024) | Official Trailer 4K".
// The returned year is zero when the title carries none.
func ExtractTitleAndYear(value string) (string, int) {
	stripped := StripNoisePhrases(value)

	year := 0
	core := stripped
	if m := parenYear.FindStringSubmatchIndex(stripped); m != nil {
		if parsed, err := strconv.Atoi(stripped[m[2]:m[3]]); err == nil {
			year = parsed
		}
		core = strings.TrimSpace(stripped[:m[0]])
	}

	if loc := titleSeparator.FindStringIndex(core); loc != nil && loc[0] > 0 {
		core = strings.TrimSpace(core[:loc[0]])
	}

	return core, year
}

var schemePrefix = regexp.MustCompile(`(?i)^https?://`)

// NormalizeBaseURL is a best-effort cleanup of a user-supplied server URL:
// defaults the scheme to https and trims trailing slashes. Returns an empty
// string when the input cannot be interpreted.
func NormalizeBaseURL(value string) string {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		return ""
	}

	if !schemePrefix.MatchString(candidate) {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Host == "" {
		return strings.TrimRight(candidate, "/")
	}

	path := ""
	if parsed.Path != "" && parsed.Path != "/" {
		path = strings.TrimRight(parsed.Path, "/")
	}
	return parsed.Scheme + "://" + parsed.Host + path
}

// SanitizeBaseURL is the strict variant used before any network call. The
// returned error carries the user-facing message verbatim.
func SanitizeBaseURL(base string) (string, error) {
	normalized := NormalizeBaseURL(base)
	if normalized == "" {
		return "", errors.New("server URL missing; update the options page and try again")
	}
	if !schemePrefix.MatchString(normalized) {
		return "", fmt.Errorf("server URL %q is invalid; include http(s) and a valid host", base)
	}
	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("server URL %q is invalid; include http(s) and a valid host", base)
	}
	return normalized, nil
}
