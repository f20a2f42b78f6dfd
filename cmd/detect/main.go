package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"overbridge/internal/detect"
	"overbridge/internal/parsers"
	"overbridge/pkg/models"
)

// Offline detection harness: fetch (or read) a page, run the parser and
// reconciler pipeline, and print what the extension popup would show, minus
// the catalog enrichment.
func main() {
	pageURL := flag.String("url", "", "page URL to fetch and scan")
	file := flag.String("file", "", "local HTML file to scan instead of fetching")
	limit := flag.Int("limit", models.DetectionLimitDefault, "max detections")
	asJSON := flag.Bool("json", false, "print raw JSON instead of a summary")
	flag.Parse()

	if *pageURL == "" && *file == "" {
		fmt.Fprintln(os.Stderr, "usage: detect -url <page> | -file <page.html> [-limit n] [-json]")
		os.Exit(1)
	}

	html, err := loadPage(*pageURL, *file)
	if err != nil {
		log.Fatalf("load page: %v", err)
	}

	page, err := parsers.NewPage(*pageURL, html)
	if err != nil {
		log.Fatalf("parse page: %v", err)
	}

	raw := parsers.Run(page, parsers.All())
	result := detect.Reconcile(raw, *limit)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("encode: %v", err)
		}
		return
	}

	fmt.Printf("%d raw candidates from %d parsers\n\n", len(raw), len(parsers.All()))
	printList("detected", result.Items)
	printList("weak", result.Weak)
}

func loadPage(pageURL, file string) (string, error) {
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func printList(label string, items []models.ReconciledCandidate) {
	fmt.Printf("%s (%d):\n", label, len(items))
	for _, item := range items {
		year := item.ReleaseYear
		if year == "" {
			year = "????"
		}
		fmt.Printf("  [%s] %s (%s) via %s\n", item.MediaType, item.Title, year, item.Source)
	}
	fmt.Println()
}
