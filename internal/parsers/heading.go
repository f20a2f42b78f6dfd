package parsers

import (
	"strings"

	"overbridge/pkg/models"
	"overbridge/pkg/textutil"
)

// HeadingParser is the lowest-signal fallback: the page's top-level heading
// as the title, the document title as subtitle. A bare heading carries no TV
// signal, so the media type is always "movie".
type HeadingParser struct{}

func (HeadingParser) Name() string { return "heading" }

func (HeadingParser) Parse(page *Page) ([]models.RawCandidate, error) {
	heading := page.Doc.Find("h1").First()
	if heading.Length() == 0 {
		heading = page.Doc.Find("h2").First()
	}
	if heading.Length() == 0 {
		return nil, nil
	}

	return []models.RawCandidate{{
		Title:       strings.TrimSpace(heading.Text()),
		Subtitle:    page.Title,
		ReleaseYear: textutil.ExtractYear(page.Title),
		MediaType:   models.MediaTypeMovie,
		Source:      "heading",
	}}, nil
}
