package parsers

import (
	"errors"
	"testing"

	"overbridge/pkg/models"
)

func mustPage(t *testing.T, html string) *Page {
	t.Helper()
	page, err := NewPage("https://example.com/watch", html)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	return page
}

func TestJSONLDParser(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{"@type":"Movie","name":"Dune","description":"Desert planet.","image":"https://img/dune.jpg","datePublished":"2021-10-22"}
	</script>
	<script type="application/ld+json">not json at all</script>
	<script type="application/ld+json">
	{"@graph":[{"@type":"TVSeries","name":"Severance","datePublished":"2022-02-18"},{"@type":"WebPage","name":"ignored"}]}
	</script>
	<script type="application/ld+json">
	{"@type":["Movie","CreativeWork"],"name":"Heat"}
	</script>
	</head><body></body></html>`

	items, err := (JSONLDParser{}).Parse(mustPage(t, html))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3: %+v", len(items), items)
	}

	if items[0].Title != "Dune" || items[0].ReleaseYear != "2021" ||
		items[0].MediaType != models.MediaTypeMovie || items[0].Poster == "" {
		t.Errorf("unexpected movie candidate: %+v", items[0])
	}
	if items[1].Title != "Severance" || items[1].MediaType != models.MediaTypeTV {
		t.Errorf("TVSeries should map to tv: %+v", items[1])
	}
	if items[2].Title != "Heat" {
		t.Errorf("multi-typed record should survive: %+v", items[2])
	}
}

func TestOpenGraphParser(t *testing.T) {
	html := `<html><head><title>Severance (2022) - Streaming</title>
	<meta property="og:title" content="Severance">
	<meta property="og:type" content="video.tv_show">
	<meta property="og:description" content="Work-life balance, literally.">
	<meta property="og:image" content="https://img/sev.jpg">
	</head><body></body></html>`

	items, err := (OpenGraphParser{}).Parse(mustPage(t, html))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	got := items[0]
	if got.Title != "Severance" || got.MediaType != models.MediaTypeTV ||
		got.ReleaseYear != "2022" || got.Source != "open-graph" {
		t.Errorf("unexpected candidate: %+v", got)
	}
}

func TestOpenGraphParserNoTitle(t *testing.T) {
	items, err := (OpenGraphParser{}).Parse(mustPage(t, "<html><head></head><body></body></html>"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no candidates, got %+v", items)
	}
}

func TestHeadingParser(t *testing.T) {
	html := `<html><head><title>Dune (2021) - Example</title></head>
	<body><h1> Dune </h1></body></html>`

	items, err := (HeadingParser{}).Parse(mustPage(t, html))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	got := items[0]
	if got.Title != "Dune" || got.Subtitle != "Dune (2021) - Example" ||
		got.ReleaseYear != "2021" || got.MediaType != models.MediaTypeMovie {
		t.Errorf("unexpected candidate: %+v", got)
	}
}

func TestIMDbListParser(t *testing.T) {
	html := `<html><body>
	<div data-testid="title-list-item">
		<div data-testid="title-list-item-ranking"><span class="ipc-signpost__text">#1</span></div>
		<h3>The Shawshank Redemption</h3>
		<span class="cli-title-metadata-item">1994</span>
		<span class="cli-title-metadata-item">2h 22m</span>
		<div data-testid="ratingGroup--imdb-rating">
			<span class="ipc-rating-star--rating">9.3</span>
			<span class="ipc-rating-star--voteCount">(2.9M)</span>
		</div>
	</div>
	<div data-testid="title-list-item"><h3></h3></div>
	</body></html>`

	items, err := (IMDbListParser{}).Parse(mustPage(t, html))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1: %+v", len(items), items)
	}
	got := items[0]
	if got.Title != "The Shawshank Redemption" || got.ReleaseYear != "1994" {
		t.Errorf("unexpected candidate: %+v", got)
	}
	want := "#1 • 1994 • 2h 22m • IMDb 9.3 (2.9M)"
	if got.Subtitle != want {
		t.Errorf("subtitle = %q, want %q", got.Subtitle, want)
	}
}

type failingSource struct{}

func (failingSource) Name() string { return "failing" }
func (failingSource) Parse(*Page) ([]models.RawCandidate, error) {
	return nil, errors.New("boom")
}

type panickySource struct{}

func (panickySource) Name() string { return "panicky" }
func (panickySource) Parse(*Page) ([]models.RawCandidate, error) {
	panic("unexpected markup")
}

func TestRunIsolatesFailures(t *testing.T) {
	html := `<html><head><title>Dune</title>
	<meta property="og:title" content="Dune">
	</head><body><h1>Dune</h1></body></html>`
	page := mustPage(t, html)

	sources := []Source{failingSource{}, OpenGraphParser{}, panickySource{}, HeadingParser{}}
	out := Run(page, sources)

	if len(out) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(out), out)
	}
	// Registry order is preserved across parsers.
	if out[0].Source != "open-graph" || out[1].Source != "heading" {
		t.Errorf("unexpected ordering: %+v", out)
	}
}
