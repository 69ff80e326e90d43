// Package fetch downloads readable text for documents collected without content.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/TobiSchelling/histline/internal/database"
)

const minContentRunes = 50

// Result holds the results of a content fetch run.
type Result struct {
	Fetched int
	Failed  int
	Skipped int
}

// Options configures a ContentFetcher.
type Options struct {
	Timeout           time.Duration
	RequestsPerMinute int
	UserAgent         string
}

// ContentFetcher fetches full document text via HTTP + readability extraction.
type ContentFetcher struct {
	db        *database.DB
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *zap.SugaredLogger
}

// NewContentFetcher creates a new content fetcher. A non-positive request
// rate disables throttling.
func NewContentFetcher(db *database.DB, opts Options, logger *zap.SugaredLogger) *ContentFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "histline/1.0"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &ContentFetcher{
		db: db,
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		limiter:   limiter,
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

// FetchMissingContent fetches content for documents that have none. After an
// HTTP error status the remaining documents of that host are skipped.
func (f *ContentFetcher) FetchMissingContent(ctx context.Context) (*Result, error) {
	docs, err := f.db.GetDocumentsNeedingFetch()
	if err != nil {
		return nil, errors.Wrap(err, "listing documents needing fetch")
	}

	result := &Result{}
	if len(docs) == 0 {
		f.logger.Infow("No documents need content fetching")
		return result, nil
	}

	failedDomains := make(map[string]struct{})
	for _, doc := range docs {
		domain := ""
		if u, err := url.Parse(doc.URL); err == nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			if err := f.db.MarkDocumentFetchAttempted(doc.ID); err != nil {
				return result, err
			}
			result.Skipped++
			continue
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return result, err
		}

		content, err := f.fetchDocumentContent(ctx, doc.URL)
		var statusErr *httpError
		switch {
		case errors.As(err, &statusErr):
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			f.logger.Warnw("HTTP error, skipping remaining documents from host",
				"url", doc.URL, "status", statusErr.code, "domain", domain)
		case err != nil:
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			f.logger.Warnw("Fetch failed", "url", doc.URL, "error", err)
		}

		if content == "" {
			if err := f.db.MarkDocumentFetchAttempted(doc.ID); err != nil {
				return result, err
			}
			result.Failed++
			continue
		}

		if err := f.db.UpdateDocumentContent(doc.ID, &content); err != nil {
			return result, err
		}
		result.Fetched++
		f.logger.Infow("Fetched content", "document_id", doc.ID, "title", doc.Title)
	}

	f.logger.Infow("Content fetch complete", "fetched", result.Fetched, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

// FetchURL returns the readable text of a single page. Pages whose text is
// too short to analyse yield an error.
func (f *ContentFetcher) FetchURL(ctx context.Context, docURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	content, err := f.fetchDocumentContent(ctx, docURL)
	if err != nil {
		return "", errors.Wrapf(err, "fetching %s", docURL)
	}
	if content == "" {
		return "", errors.Newf("no readable content at %s", docURL)
	}
	return content, nil
}

func (f *ContentFetcher) fetchDocumentContent(ctx context.Context, docURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "requesting document")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	parsedURL, _ := url.Parse(docURL)
	article, err := readability.FromReader(io.LimitReader(resp.Body, 10<<20), parsedURL)
	if err != nil {
		return "", errors.Wrap(err, "extracting readable content")
	}

	text := strings.TrimSpace(article.TextContent)
	if len([]rune(text)) < minContentRunes {
		return "", nil
	}
	return text, nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%d %s", e.code, http.StatusText(e.code))
}
