package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/ewa/raredx/internal/models"
)

// FetcherConfig configures the PubMed article fetcher used to enrich the
// dataset with additional papers. It never runs on the query path.
type FetcherConfig struct {
	BaseURL    string
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	OnProgress func(paperID string)
}

type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config FetcherConfig) (*Fetcher, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://pubmed.ncbi.nlm.nih.gov"
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // stay polite to NCBI
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// FetchPapers downloads the article page for each PubMed ID and parses it
// into a Paper record. Fetching stops at the first error.
func (f *Fetcher) FetchPapers(ctx context.Context, paperIDs []string) ([]models.Paper, error) {
	papers := make([]models.Paper, 0, len(paperIDs))

	for _, id := range paperIDs {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		paper, err := f.fetchPaper(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch paper %s: %w", id, err)
		}
		papers = append(papers, paper)

		if f.config.OnProgress != nil {
			f.config.OnProgress(id)
		}
	}

	return papers, nil
}

func (f *Fetcher) fetchPaper(ctx context.Context, id string) (models.Paper, error) {
	url := fmt.Sprintf("%s/%s/", strings.TrimRight(f.config.BaseURL, "/"), id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Paper{}, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return models.Paper{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Paper{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.Paper{}, err
	}

	return parsePaper(id, doc), nil
}

// parsePaper reads the citation_* meta tags PubMed embeds in every article
// page. Missing fields stay empty rather than failing.
func parsePaper(id string, doc *goquery.Document) models.Paper {
	paper := models.Paper{
		PaperID:  id,
		Title:    metaContent(doc, "citation_title"),
		Abstract: metaContent(doc, "citation_abstract"),
		Journal:  metaContent(doc, "citation_journal_title"),
	}

	if paper.Abstract == "" {
		paper.Abstract = strings.TrimSpace(doc.Find("div.abstract-content").Text())
	}

	doc.Find(`meta[name="citation_author"]`).Each(func(_ int, s *goquery.Selection) {
		if author, ok := s.Attr("content"); ok && author != "" {
			paper.Authors = append(paper.Authors, author)
		}
	})

	if date := metaContent(doc, "citation_date"); len(date) >= 4 {
		paper.PublicationDate.Year = json.Number(date[:4])
	}

	return paper
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).Attr("content")
	return strings.TrimSpace(content)
}
