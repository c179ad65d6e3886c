package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cloo-solutions/postcraft/internal/domain"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBodyBytes = 10 << 20

	// Some sites refuse requests without a browser-like User-Agent.
	defaultUserAgent = "Mozilla/5.0 (compatible; PostcraftBot/1.0; +https://postcraft.dev)"
)

var imgSrcPattern = regexp.MustCompile(`<img[^>]+src="([^">]+)"`)

// ContentFetcher retrieves web pages for the pipelines. A malformed URL is
// rejected locally, before any network attempt.
type ContentFetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewContentFetcher creates a ContentFetcher with default timeout and body
// limit.
func NewContentFetcher() *ContentFetcher {
	return &ContentFetcher{
		client:       &http.Client{Timeout: defaultFetchTimeout},
		userAgent:    defaultUserAgent,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// NewContentFetcherWithClient creates a ContentFetcher with a custom HTTP
// client (for testing).
func NewContentFetcherWithClient(client *http.Client) *ContentFetcher {
	f := NewContentFetcher()
	f.client = client
	return f
}

// Fetch retrieves the page at rawURL and returns it with the image URLs found
// in its markup, resolved against the page URL.
func (f *ContentFetcher) Fetch(ctx context.Context, rawURL string) (*domain.Document, error) {
	if err := domain.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			fmt.Sprintf("invalid request for %s", rawURL), err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeTransport,
			fmt.Sprintf("failed to fetch %s", rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewDomainError(domain.ErrCodeTransport,
			fmt.Sprintf("failed to fetch %s (%d): %s", rawURL, resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeTransport,
			fmt.Sprintf("failed to read response from %s", rawURL), err)
	}

	html := string(body)
	if strings.TrimSpace(html) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeTransport,
			fmt.Sprintf("empty response from %s", rawURL))
	}

	log.Printf("fetcher: fetched %s (%d bytes)", rawURL, len(html))

	return &domain.Document{
		SourceURL: rawURL,
		HTML:      html,
		ImageURLs: extractImageURLs(html, rawURL),
	}, nil
}

// extractImageURLs pulls img src attributes out of the markup and resolves
// them against the page URL. Unresolvable entries are skipped.
func extractImageURLs(html, pageURL string) []string {
	matches := imgSrcPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		return nil
	}

	urls := make([]string, 0, len(matches))
	for _, match := range matches {
		resolved, err := resolveImageURL(match[1], pageURL)
		if err != nil {
			log.Printf("fetcher: skipping image url %q: %v", match[1], err)
			continue
		}
		urls = append(urls, resolved)
	}
	return urls
}

// resolveImageURL normalizes one image reference: HTML-escaped ampersands are
// restored and relative paths resolve against the page URL.
func resolveImageURL(imageURL, pageURL string) (string, error) {
	cleaned := strings.ReplaceAll(imageURL, "&amp;", "&")

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page url: %w", err)
	}
	ref, err := url.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", resolved.Scheme)
	}
	return resolved.String(), nil
}
