// Package images implements the image pipeline of spec.md §4.E: collecting
// every remote image URL in a request, fetching and validating them
// concurrently, and rewriting content parts in place as base64 data URLs.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/logging"
)

// Warning describes one image URL that failed validation and was left
// unconverted (spec.md §4.E step 4).
type Warning struct {
	URL    string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("image fetch failed for %s: %s", w.URL, w.Reason)
}

// HTTPDoer is the subset of the shared HTTP session the image pipeline
// needs. session.Session satisfies it; tests substitute a stub.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const defaultFetchTimeout = 30 * time.Second

var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

var allowedSuffixes = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

// Pipeline fetches and inlines remote image URLs found in an ir.Request.
type Pipeline struct {
	client      HTTPDoer
	logger      logging.Logger
	maxWorkers  int
	fetchTimeout time.Duration
}

func New(client HTTPDoer, logger logging.Logger, maxWorkers int) *Pipeline {
	if logger == nil {
		logger = logging.NoopLogger{}
	}
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	return &Pipeline{client: client, logger: logger, maxWorkers: maxWorkers, fetchTimeout: defaultFetchTimeout}
}

type fetchResult struct {
	dataURLPrefix string // "data:<mime>;base64,"
	encoded       string
	err           error
	reason        string
}

// Fetch walks req's messages collecting every non-data image_url, fetches
// them concurrently over a bounded worker pool (grounded on the teacher's
// executeToolsParallel worker-pool shape), validates each response, and
// rewrites matching content parts in place. It is idempotent: a request
// whose image URLs are already data URLs triggers no fetches (spec.md
// §4.E).
func (p *Pipeline) Fetch(ctx context.Context, req *ir.Request) []Warning {
	urls := collectURLs(req)
	if len(urls) == 0 {
		return nil
	}

	results := p.fetchAll(ctx, urls)

	var warnings []Warning
	for url, r := range results {
		if r.err != nil {
			warnings = append(warnings, Warning{URL: url, Reason: r.reason})
		}
	}

	rewrite(req, results)
	return warnings
}

// collectURLs walks the message tree collecting every distinct non-data
// image_url (spec.md §4.E step 1).
func collectURLs(req *ir.Request) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, m := range req.Messages {
		for _, part := range m.Content {
			if part.Kind != ir.PartImage || !part.IsImageURL() {
				continue
			}
			if strings.HasPrefix(part.ImageURL, "data:") {
				continue
			}
			if seen[part.ImageURL] {
				continue
			}
			seen[part.ImageURL] = true
			urls = append(urls, part.ImageURL)
		}
	}
	return urls
}

// fetchAll issues all fetches concurrently bounded by maxWorkers (spec.md
// §4.E step 2).
func (p *Pipeline) fetchAll(ctx context.Context, urls []string) map[string]fetchResult {
	sem := make(chan struct{}, p.maxWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]fetchResult, len(urls))

	for _, u := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(url string) {
			defer wg.Done()
			defer func() { <-sem }()

			r := p.fetchOne(ctx, url)

			mu.Lock()
			results[url] = r
			mu.Unlock()

			if r.err != nil {
				p.logger.Warn(ctx, "image fetch failed", logging.F("url", url), logging.F("reason", r.reason))
			}
		}(u)
	}
	wg.Wait()
	return results
}

func (p *Pipeline) fetchOne(ctx context.Context, url string) fetchResult {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return fetchResult{err: err, reason: "invalid URL"}
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fetchResult{err: err, reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fetchResult{err: fmt.Errorf("status %d", resp.StatusCode), reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fetchResult{err: err, reason: "could not read response body"}
	}

	mime := resolveMIME(resp.Header.Get("Content-Type"), url)
	if mime == "" {
		return fetchResult{err: fmt.Errorf("unrecognised content type"), reason: "unrecognised content type and URL suffix"}
	}
	if !magicBytesMatch(mime, body) {
		return fetchResult{err: fmt.Errorf("magic byte mismatch"), reason: "magic bytes do not match declared content type"}
	}

	return fetchResult{
		dataURLPrefix: "data:" + mime + ";base64,",
		encoded:       base64.StdEncoding.EncodeToString(body),
	}
}

// resolveMIME implements spec.md §4.E step 3's Content-Type-or-suffix check.
func resolveMIME(contentType, url string) string {
	contentType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if allowedContentTypes[contentType] {
		return contentType
	}
	if contentType != "" {
		return "" // declared but not one of the allowed types
	}

	suffix := strings.ToLower(path.Ext(stripQuery(url)))
	if !allowedSuffixes[suffix] {
		return ""
	}
	switch suffix {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	}
	return ""
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i != -1 {
		return url[:i]
	}
	return url
}

var (
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	gif87     = []byte("GIF87a")
	gif89     = []byte("GIF89a")
)

// magicBytesMatch implements spec.md §4.E step 3's magic-byte validation.
func magicBytesMatch(mime string, body []byte) bool {
	switch mime {
	case "image/png":
		return bytes.HasPrefix(body, pngMagic)
	case "image/jpeg":
		return bytes.HasPrefix(body, jpegMagic)
	case "image/gif":
		return bytes.HasPrefix(body, gif87) || bytes.HasPrefix(body, gif89)
	case "image/webp":
		return len(body) >= 12 && bytes.HasPrefix(body, []byte("RIFF")) && bytes.Equal(body[8:12], []byte("WEBP"))
	}
	return false
}

// rewrite replaces successfully fetched URLs in place with their data URL
// form (spec.md §4.E step 5); failed fetches leave the content part
// unchanged (step 4).
func rewrite(req *ir.Request, results map[string]fetchResult) {
	for i := range req.Messages {
		for j := range req.Messages[i].Content {
			part := &req.Messages[i].Content[j]
			if part.Kind != ir.PartImage || !part.IsImageURL() {
				continue
			}
			r, ok := results[part.ImageURL]
			if !ok || r.err != nil {
				continue
			}
			part.ImageURL = r.dataURLPrefix + r.encoded
		}
	}
}
