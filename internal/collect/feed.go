package collect

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const maxPerFeed = 20

// FeedEntry represents a parsed feed entry.
type FeedEntry struct {
	URL     string
	Title   string
	Content string
	Source  string
}

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
	logger *zap.SugaredLogger
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig, userAgent string, logger *zap.SugaredLogger) *FeedParser {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &FeedParser{feeds: feeds, parser: parser, logger: logger}
}

// ParseAll parses every configured feed. A feed that fails is logged and
// skipped; the context aborts the remaining feeds.
func (fp *FeedParser) ParseAll(ctx context.Context) ([]FeedEntry, error) {
	var all []FeedEntry
	for _, fc := range fp.feeds {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		entries, err := fp.parseFeed(ctx, fc.URL, name)
		if err != nil {
			fp.logger.Warnw("Failed to parse feed", "url", fc.URL, "error", err)
			continue
		}
		all = append(all, entries...)
		fp.logger.Infow("Parsed feed", "source", name, "entries", len(entries))
	}
	return all, nil
}

func (fp *FeedParser) parseFeed(ctx context.Context, feedURL, sourceName string) ([]FeedEntry, error) {
	feed, err := fp.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", feedURL)
	}

	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}
		if entry := parseItem(item, sourceName); entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func parseItem(item *gofeed.Item, source string) *FeedEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var content string
	if item.Content != "" {
		content = stripHTML(item.Content)
	} else if item.Description != "" {
		content = stripHTML(item.Description)
	}

	return &FeedEntry{URL: itemURL, Title: title, Content: content, Source: source}
}

// stripHTML returns the text of an HTML fragment with whitespace collapsed.
// Block elements are separated by newlines so sentence splitting still works.
func stripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	doc.Find("p, br, div, li, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
