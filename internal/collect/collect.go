// Package collect gathers source documents from RSS and Atom feeds.
package collect

import (
	"context"

	"go.uber.org/zap"

	"github.com/TobiSchelling/histline/internal/config"
	"github.com/TobiSchelling/histline/internal/database"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound   int
	NewDocuments int
	Duplicates   int
	Sources      map[string]int
}

// Collector stores feed entries as documents.
type Collector struct {
	db         *database.DB
	feedParser *FeedParser
	logger     *zap.SugaredLogger
}

// NewCollector creates a collector for the configured feeds.
func NewCollector(cfg *config.Config, db *database.DB, logger *zap.SugaredLogger) *Collector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c := &Collector{db: db, logger: logger}

	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
		}
		c.feedParser = NewFeedParser(feeds, cfg.Fetch.UserAgent, logger)
	}

	return c
}

// Collect parses all feeds and inserts new documents.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	r := &Result{Sources: make(map[string]int)}
	if c.feedParser == nil {
		c.logger.Infow("No feeds configured")
		return r, nil
	}

	c.logger.Infow("Collecting from feeds", "feeds", len(c.feedParser.feeds))
	entries, err := c.feedParser.ParseAll(ctx)
	if err != nil {
		return r, err
	}
	r.TotalFound = len(entries)

	for _, entry := range entries {
		var source, content *string
		if entry.Source != "" {
			source = &entry.Source
		}
		if entry.Content != "" {
			content = &entry.Content
		}

		id, err := c.db.InsertDocument(entry.URL, entry.Title, source, content)
		if err != nil {
			return r, err
		}
		if id > 0 {
			r.NewDocuments++
			r.Sources[entry.Source]++
		} else {
			r.Duplicates++
		}
	}

	c.logger.Infow("Collection complete", "found", r.TotalFound, "new", r.NewDocuments, "duplicates", r.Duplicates)
	return r, nil
}
