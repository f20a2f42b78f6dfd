package parsers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"overbridge/pkg/models"
	"overbridge/pkg/textutil"
)

const subtitleSeparator = " • "

var yearishText = regexp.MustCompile(`(19|20)\d{2}`)

// IMDbListParser extracts entries from IMDb top-N / chart list markup: title,
// rank badge, inline metadata tags and the rating+vote-count pair, joined
// into one composed subtitle.
type IMDbListParser struct{}

func (IMDbListParser) Name() string { return "imdb-list" }

func (IMDbListParser) Parse(page *Page) ([]models.RawCandidate, error) {
	items := page.Doc.Find(`.cli-children, [data-testid="title-list-item"]`)
	if items.Length() == 0 {
		return nil, nil
	}

	var out []models.RawCandidate
	items.Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find("h3").First().Text())
		if title == "" {
			return
		}

		var metadataItems []string
		item.Find(".cli-title-metadata-item").Each(func(_ int, el *goquery.Selection) {
			if text := strings.TrimSpace(el.Text()); text != "" {
				metadataItems = append(metadataItems, text)
			}
		})

		ranking := strings.TrimSpace(item.
			Find(`[data-testid="title-list-item-ranking"] .ipc-signpost__text`).First().Text())
		rating := strings.TrimSpace(item.
			Find(`[data-testid="ratingGroup--imdb-rating"] .ipc-rating-star--rating`).First().Text())
		votes := strings.TrimSpace(item.
			Find(`[data-testid="ratingGroup--imdb-rating"] .ipc-rating-star--voteCount`).First().Text())

		releaseYearText := ""
		for _, text := range metadataItems {
			if yearishText.MatchString(text) {
				releaseYearText = text
				break
			}
		}
		if releaseYearText == "" {
			releaseYearText = title
		}

		out = append(out, models.RawCandidate{
			Title:       title,
			Subtitle:    buildListSubtitle(ranking, metadataItems, rating, votes),
			ReleaseYear: textutil.ExtractYear(releaseYearText),
			MediaType:   models.MediaTypeMovie,
			Source:      "imdb-list",
		})
	})

	return out, nil
}

func buildListSubtitle(ranking string, metadataItems []string, rating, votes string) string {
	var parts []string
	if ranking != "" {
		parts = append(parts, ranking)
	}
	if len(metadataItems) > 0 {
		parts = append(parts, strings.Join(metadataItems, subtitleSeparator))
	}
	if rating != "" {
		imdb := "IMDb " + rating
		if votes != "" {
			imdb += " " + votes
		}
		parts = append(parts, imdb)
	}
	return strings.Join(parts, subtitleSeparator)
}
