// Package marketnews supplies recent market headlines for advisory
// prompts. Scrape failures never block a verdict; the service degrades
// to an empty headline list.
package marketnews

import (
	"context"
	"sync"
	"time"

	"tv-consensus-bot/internal/logger"
)

// Service provides per-symbol headlines with caching.
type Service struct {
	scraper *Scraper
	cache   *headlineCache
	cfg     *ServiceConfig
}

// ServiceConfig configures the headline service.
type ServiceConfig struct {
	MaxHeadlines   int
	CacheDuration  time.Duration
	ScraperTimeout time.Duration
	Enabled        bool
}

// DefaultServiceConfig returns the default configuration.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxHeadlines:   5,
		CacheDuration:  30 * time.Minute,
		ScraperTimeout: 10 * time.Second,
		Enabled:        false,
	}
}

type headlineCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	headlines []Headline
	timestamp time.Time
}

func newHeadlineCache(ttl time.Duration) *headlineCache {
	cache := &headlineCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}

	go cache.cleanupLoop()

	return cache
}

func (c *headlineCache) get(symbol string) ([]Headline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[symbol]
	if !exists {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.headlines, true
}

func (c *headlineCache) set(symbol string, headlines []Headline) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[symbol] = &cacheEntry{
		headlines: headlines,
		timestamp: time.Now(),
	}
}

func (c *headlineCache) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

func (c *headlineCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for symbol, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, symbol)
		}
	}
}

// NewService creates a headline service.
func NewService(cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		scraper: NewScraper(cfg.ScraperTimeout),
		cache:   newHeadlineCache(cfg.CacheDuration),
		cfg:     cfg,
	}
}

// Titles returns recent headline titles for the symbol, cached or fresh.
// Disabled service or scrape failure both return nil; headlines are
// prompt garnish, never a precondition.
func (s *Service) Titles(ctx context.Context, symbol string) []string {
	if !s.cfg.Enabled {
		return nil
	}

	if cached, ok := s.cache.get(symbol); ok {
		logger.Debug(ctx, "Using cached headlines", "symbol", symbol, "count", len(cached))
		return titlesOf(cached)
	}

	headlines, err := s.scraper.Fetch(ctx, symbol, s.cfg.MaxHeadlines)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch headlines", err, "symbol", symbol)
		return nil
	}

	s.cache.set(symbol, headlines)
	return titlesOf(headlines)
}

func titlesOf(headlines []Headline) []string {
	titles := make([]string, 0, len(headlines))
	for _, h := range headlines {
		titles = append(titles, h.Title)
	}
	return titles
}
