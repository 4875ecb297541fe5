package marketnews

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"tv-consensus-bot/internal/logger"
)

// Headline is one scraped market headline.
type Headline struct {
	Title  string
	URL    string
	Source string
}

// Scraper fetches recent headlines for an instrument from financial
// news sources.
type Scraper struct {
	sources []newsSource
	timeout time.Duration
}

// newsSource defines one scrape target and its CSS selectors.
type newsSource struct {
	Name       string
	BaseURL    string
	SearchPath string // "{symbol}" is replaced with the query term
	Container  string
	Title      string
	Link       string
	RateLimit  time.Duration
}

func defaultSources() []newsSource {
	return []newsSource{
		{
			Name:       "Investing",
			BaseURL:    "https://www.investing.com",
			SearchPath: "/search/?q={symbol}&tab=news",
			Container:  "div.searchSectionMain a.articleItem",
			Title:      "span.title",
			Link:       "",
			RateLimit:  2 * time.Second,
		},
		{
			Name:       "FXStreet",
			BaseURL:    "https://www.fxstreet.com",
			SearchPath: "/search?q={symbol}",
			Container:  "article",
			Title:      "h4 a, h3 a",
			Link:       "h4 a, h3 a",
			RateLimit:  2 * time.Second,
		},
	}
}

// NewScraper creates a scraper with the default source list.
func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{
		sources: defaultSources(),
		timeout: timeout,
	}
}

// Fetch returns up to maxHeadlines headlines for the symbol, falling
// back to Google News when the primary sources yield nothing.
func (s *Scraper) Fetch(ctx context.Context, symbol string, maxHeadlines int) ([]Headline, error) {
	logger.Info(ctx, "Starting headline scraping", "symbol", symbol, "sources", len(s.sources))

	all := []Headline{}
	perSource := maxHeadlines / len(s.sources)
	if perSource < 1 {
		perSource = 1
	}

	for _, source := range s.sources {
		if len(all) >= maxHeadlines {
			break
		}
		headlines, err := s.scrapeSource(ctx, source, symbol, perSource)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape source", err, "source", source.Name, "symbol", symbol)
			continue
		}
		all = append(all, headlines...)

		time.Sleep(source.RateLimit)
	}

	if len(all) == 0 {
		logger.Info(ctx, "No headlines from primary sources, trying Google News", "symbol", symbol)
		fallback, err := s.scrapeGoogleNews(ctx, symbol, maxHeadlines)
		if err != nil {
			return nil, err
		}
		all = fallback
	}

	if len(all) > maxHeadlines {
		all = all[:maxHeadlines]
	}
	logger.Info(ctx, "Headline scraping completed", "symbol", symbol, "headlines", len(all))
	return all, nil
}

func (s *Scraper) scrapeSource(ctx context.Context, source newsSource, symbol string, maxHeadlines int) ([]Headline, error) {
	headlines := []Headline{}

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(source.BaseURL)),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML(source.Container, func(e *colly.HTMLElement) {
		if len(headlines) >= maxHeadlines {
			return
		}

		title := strings.TrimSpace(e.ChildText(source.Title))
		if title == "" {
			return
		}

		link := e.Attr("href")
		if source.Link != "" {
			link = e.ChildAttr(source.Link, "href")
		}
		if link != "" && !strings.HasPrefix(link, "http") {
			link = source.BaseURL + link
		}

		headlines = append(headlines, Headline{
			Title:  title,
			URL:    link,
			Source: source.Name,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Scraping error", err, "source", source.Name, "url", r.Request.URL.String())
	})

	searchURL := source.BaseURL + strings.ReplaceAll(source.SearchPath, "{symbol}", url.QueryEscape(symbol))
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", searchURL, err)
	}
	c.Wait()

	return headlines, nil
}

// scrapeGoogleNews is the fallback when instrument-specific sources
// return nothing.
func (s *Scraper) scrapeGoogleNews(ctx context.Context, symbol string, maxHeadlines int) ([]Headline, error) {
	headlines := []Headline{}

	c := colly.NewCollector(
		colly.AllowedDomains("news.google.com"),
	)
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	})

	c.OnResponse(func(r *colly.Response) {
		parsed, err := ParseGoogleNews(strings.NewReader(string(r.Body)), maxHeadlines)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to parse Google News page", err, "symbol", symbol)
			return
		}
		headlines = parsed
	})

	searchQuery := url.QueryEscape(symbol + " market news")
	searchURL := fmt.Sprintf("https://news.google.com/search?q=%s&hl=en-US&gl=US&ceid=US:en", searchQuery)
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("failed to scrape Google News: %w", err)
	}
	c.Wait()

	logger.Info(ctx, "Google News scraping completed", "symbol", symbol, "headlines", len(headlines))
	return headlines, nil
}

// ParseGoogleNews extracts headlines from a Google News search result
// page.
func ParseGoogleNews(body io.Reader, maxHeadlines int) ([]Headline, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse news page: %w", err)
	}

	headlines := []Headline{}
	doc.Find("article").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find("h3, h4").First().Text())
		if title == "" {
			return true
		}

		link, _ := sel.Find("a").First().Attr("href")
		// Google News links are relative redirects.
		if strings.HasPrefix(link, "./") {
			link = "https://news.google.com" + link[1:]
		}

		headlines = append(headlines, Headline{
			Title:  title,
			URL:    link,
			Source: "GoogleNews",
		})
		return len(headlines) < maxHeadlines
	})

	return headlines, nil
}

func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
