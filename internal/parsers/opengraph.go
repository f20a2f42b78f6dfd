package parsers

import (
	"strings"

	"overbridge/pkg/models"
	"overbridge/pkg/textutil"
)

// og:type values that indicate episodic content.
var openGraphTVTypes = []string{"video.tv_show", "video.episode", "tv_show", "tv.episode"}

// OpenGraphParser reads the page-level social preview tags. Emits nothing
// when the page carries no og:title.
type OpenGraphParser struct{}

func (OpenGraphParser) Name() string { return "open-graph" }

func (OpenGraphParser) Parse(page *Page) ([]models.RawCandidate, error) {
	title := metaContent(page.Doc, "property", "og:title")
	if title == "" {
		return nil, nil
	}

	ogType := strings.ToLower(metaContent(page.Doc, "property", "og:type"))
	mediaType := models.MediaTypeMovie
	for _, tvType := range openGraphTVTypes {
		if strings.Contains(ogType, tvType) {
			mediaType = models.MediaTypeTV
			break
		}
	}

	yearSource := metaContent(page.Doc, "name", "release_date")
	if yearSource == "" {
		yearSource = page.Title
	}

	return []models.RawCandidate{{
		Title:       title,
		Subtitle:    metaContent(page.Doc, "property", "og:description"),
		Poster:      metaContent(page.Doc, "property", "og:image"),
		ReleaseYear: textutil.ExtractYear(yearSource),
		MediaType:   mediaType,
		Source:      "open-graph",
	}}, nil
}
