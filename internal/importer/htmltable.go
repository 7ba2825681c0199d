package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// HTMLSource reads the catalog from an HTML page holding a dish table followed
// by an ingredient table. Location is a file path or an http(s) URL.
type HTMLSource struct {
	Location string
	Client   *http.Client
}

func (s *HTMLSource) Name() string {
	return "html:" + s.Location
}

// Fetch opens the page and parses its tables.
func (s *HTMLSource) Fetch(ctx context.Context) (*Tables, error) {
	body, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseHTMLTables(body)
}

func (s *HTMLSource) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(s.Location, "http://") && !strings.HasPrefix(s.Location, "https://") {
		f, err := os.Open(s.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", s.Location, err)
		}
		return f, nil
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.Location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// ParseHTMLTables reads the first table as dishes and the second as ingredients.
func ParseHTMLTables(r io.Reader) (*Tables, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, fmt.Errorf("no table found in document")
	}

	dishRows := tableRows(tables.Eq(0))
	var ingredientRows [][]string
	if tables.Length() > 1 {
		ingredientRows = tableRows(tables.Eq(1))
	}
	return ParseTables(dishRows, ingredientRows)
}

func tableRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("th, td").Map(func(_ int, c *goquery.Selection) string {
			return strings.TrimSpace(c.Text())
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}
