package parsers

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"overbridge/pkg/models"
	"overbridge/pkg/textutil"
)

// schema.org types that describe a single watchable work.
var jsonLDMediaTypes = map[string]bool{
	"Movie":       true,
	"TVSeries":    true,
	"TVEpisode":   true,
	"VideoObject": true,
}

// JSONLDParser reads embedded schema.org records from
// script[type="application/ld+json"] blocks. Invalid JSON is skipped
// silently; pages routinely carry broken blobs.
type JSONLDParser struct{}

func (JSONLDParser) Name() string { return "json-ld" }

func (JSONLDParser) Parse(page *Page) ([]models.RawCandidate, error) {
	var items []models.RawCandidate

	page.Doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var decoded any
		if err := json.Unmarshal([]byte(s.Text()), &decoded); err != nil {
			return
		}

		if list, ok := decoded.([]any); ok {
			for _, entry := range list {
				items = append(items, expandJSONLD(entry)...)
			}
			return
		}
		items = append(items, expandJSONLD(decoded)...)
	})

	return items, nil
}

// expandJSONLD recursively unwraps @graph lists and multi-valued @type
// entries, then maps recognized media records to candidates.
func expandJSONLD(entry any) []models.RawCandidate {
	record, ok := entry.(map[string]any)
	if !ok {
		return nil
	}

	if graph, ok := record["@graph"].([]any); ok {
		var out []models.RawCandidate
		for _, item := range graph {
			out = append(out, expandJSONLD(item)...)
		}
		return out
	}

	if types, ok := record["@type"].([]any); ok {
		var out []models.RawCandidate
		for _, t := range types {
			clone := make(map[string]any, len(record))
			for k, v := range record {
				clone[k] = v
			}
			clone["@type"] = t
			out = append(out, expandJSONLD(clone)...)
		}
		return out
	}

	recordType, _ := record["@type"].(string)
	if !jsonLDMediaTypes[recordType] {
		return nil
	}

	mediaType := models.MediaTypeMovie
	if strings.HasPrefix(strings.ToLower(recordType), "tv") {
		mediaType = models.MediaTypeTV
	}

	date := stringField(record, "datePublished")
	if date == "" {
		date = stringField(record, "dateCreated")
	}

	return []models.RawCandidate{{
		Title:       stringField(record, "name"),
		Subtitle:    stringField(record, "description"),
		Poster:      stringField(record, "image"),
		ReleaseYear: textutil.ExtractYear(date),
		MediaType:   mediaType,
		Source:      "json-ld",
	}}
}

func stringField(record map[string]any, key string) string {
	v, _ := record[key].(string)
	return strings.TrimSpace(v)
}
