package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/pkg/models"
)

// ChromeScraper renders pages in headless Chrome and extracts visible text.
type ChromeScraper struct {
	allocatorPool *sync.Pool
	maxSubPages   int
	pageTimeout   time.Duration
	logger        *slog.Logger
}

// NewChromeScraper builds a scraper backed by a pool of exec allocators.
func NewChromeScraper(cfg config.ScraperConfig, logger *slog.Logger) *ChromeScraper {
	pool := &sync.Pool{
		New: func() any {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.UserAgent(cfg.UserAgent),
			)
			allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
			return allocCtx
		},
	}

	return &ChromeScraper{
		allocatorPool: pool,
		maxSubPages:   cfg.MaxSubPages,
		pageTimeout:   cfg.PageTimeout,
		logger:        logger,
	}
}

func (s *ChromeScraper) Scrape(ctx context.Context, siteURL string) (*Result, error) {
	base, err := url.Parse(siteURL)
	if err != nil || base.Host == "" {
		return &Result{
			MainPage: Page{URL: siteURL, Type: models.SourceMainPage},
			Error:    fmt.Sprintf("invalid url: %s", siteURL),
		}, nil
	}

	mainPage, hrefs, err := s.fetchPage(ctx, siteURL, models.SourceMainPage)
	if err != nil {
		s.logger.Warn("main page scrape failed", "url", siteURL, "error", err)
		return &Result{
			MainPage: Page{URL: siteURL, Type: models.SourceMainPage},
			Error:    fmt.Sprintf("fetching main page: %v", err),
		}, nil
	}

	result := &Result{MainPage: mainPage}

	var failures []string
	for _, link := range selectSubPageLinks(base, hrefs, s.maxSubPages) {
		u, _ := url.Parse(link)
		page, _, err := s.fetchPage(ctx, link, classifyPath(u.Path))
		if err != nil {
			s.logger.Warn("sub-page scrape failed", "url", link, "error", err)
			failures = append(failures, link)
			continue
		}
		result.SubPages = append(result.SubPages, page)
	}
	if len(failures) > 0 {
		result.Warning = fmt.Sprintf("skipped %d unreachable sub-pages: %s",
			len(failures), strings.Join(failures, ", "))
	}

	return result, nil
}

// fetchPage renders one page and returns it plus the hrefs found on it.
func (s *ChromeScraper) fetchPage(ctx context.Context, pageURL string, pageType models.SourceType) (Page, []string, error) {
	allocCtx := s.allocatorPool.Get().(context.Context)
	defer s.allocatorPool.Put(allocCtx)

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, s.pageTimeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the browser context.
	go func() {
		select {
		case <-ctx.Done():
			cancelTimeout()
		case <-taskCtx.Done():
		}
	}()

	var title, description, bodyText string
	var hrefs []string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.Evaluate(`document.querySelector('meta[name="description"]')?.content ?? ''`, &description),
		chromedp.Evaluate(`document.body.innerText`, &bodyText),
		chromedp.Evaluate(`Array.from(document.querySelectorAll('a[href]')).map(a => a.getAttribute('href'))`, &hrefs),
	)
	if err != nil {
		return Page{}, nil, err
	}

	content := strings.TrimSpace(bodyText)
	metadata := map[string]string{}
	if description != "" {
		metadata["description"] = description
	}

	return Page{
		URL:      pageURL,
		Type:     pageType,
		Title:    strings.TrimSpace(title),
		Content:  content,
		Excerpt:  makeExcerpt(content),
		Metadata: metadata,
	}, hrefs, nil
}

var _ Scraper = (*ChromeScraper)(nil)
