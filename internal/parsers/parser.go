package parsers

import (
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"overbridge/pkg/models"
)

// Page is the immutable context handed to every parser: the parsed document
// plus a few pre-extracted fields parsers commonly need.
type Page struct {
	URL   string
	Title string
	Doc   *goquery.Document
}

// NewPage parses raw page HTML into a Page.
func NewPage(pageURL, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Page{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Doc:   doc,
	}, nil
}

// Source is implemented by each signal parser. Parse must be a pure function
// of the supplied page: no shared mutable state, no network access.
type Source interface {
	Name() string
	Parse(page *Page) ([]models.RawCandidate, error)
}

// All returns the canonical parser set in registry order.
func All() []Source {
	return []Source{
		JSONLDParser{},
		OpenGraphParser{},
		HeadingParser{},
		IMDbListParser{},
	}
}

// Run fans out to every source concurrently and flattens the results in
// registry order, preserving each parser's internal ordering. A parser that
// errors or panics contributes an empty slice; it never fails the others.
func Run(page *Page, sources []Source) []models.RawCandidate {
	results := make([][]models.RawCandidate, len(sources))

	done := make(chan int, len(sources))
	for i, src := range sources {
		go func(i int, src Source) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[parsers] %s panicked: %v", src.Name(), r)
					results[i] = nil
				}
				done <- i
			}()

			items, err := src.Parse(page)
			if err != nil {
				log.Printf("[parsers] %s failed: %v", src.Name(), err)
				return
			}
			results[i] = items
		}(i, src)
	}
	for range sources {
		<-done
	}

	var out []models.RawCandidate
	for i, src := range sources {
		for _, item := range results[i] {
			if item.Source == "" {
				item.Source = src.Name()
			}
			out = append(out, item)
		}
	}
	return out
}

func metaContent(doc *goquery.Document, attribute, value string) string {
	content, _ := doc.Find(`meta[` + attribute + `="` + value + `"]`).First().Attr("content")
	return strings.TrimSpace(content)
}
