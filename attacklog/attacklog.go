// Package attacklog implements the attack/error logger of spec.md §4.K:
// keyword-based classification of framework-level request-parsing errors
// into known attack categories, and a gzipped JSONL writer, one file per
// UTC day.
package attacklog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Category is one of the known attack classes spec.md §4.K names.
type Category string

const (
	CategoryOGNL       Category = "ognl"
	CategoryTraversal  Category = "directory_traversal"
	CategorySSTI       Category = "ssti"
	CategorySQLi       Category = "sqli"
	CategoryXSS        Category = "xss"
	CategoryUnclassified Category = "unclassified"
)

// keywordSets are scanned case-insensitively against the raw request
// snippet, in this priority order, so an input matching multiple
// categories is classified by whichever is checked first.
var keywordSets = []struct {
	category Category
	keywords []string
}{
	{CategoryOGNL, []string{"ognl.", "@java.lang", "#context", "getruntime().exec"}},
	{CategoryTraversal, []string{"../", "..\\", "/etc/passwd", "..%2f"}},
	{CategorySSTI, []string{"{{7*7}}", "${7*7}", "{{config", "{%", "<%="}},
	{CategorySQLi, []string{"' or '1'='1", "union select", "drop table", "; --", "xp_cmdshell"}},
	{CategoryXSS, []string{"<script", "onerror=", "javascript:", "<img src=x"}},
}

// maxSnippetLen is spec.md §4.K's up-to-4096-byte raw-request snippet cap.
const maxSnippetLen = 4096

// Classify scans raw (case-insensitively) for the keyword sets above and
// returns the first matching category, or (CategoryUnclassified, false) if
// none match.
func Classify(raw []byte) (Category, bool) {
	lower := strings.ToLower(string(raw))
	for _, set := range keywordSets {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return set.category, true
			}
		}
	}
	return CategoryUnclassified, false
}

// Record is one JSONL entry written by Writer.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	RemoteIP  string    `json:"remote_ip"`
	Category  Category  `json:"category"`
	ErrorType string    `json:"error_type"`
	Snippet   string    `json:"snippet"`
}

// Tally optionally counts records across a fleet of proxy processes (spec.md
// §4.K supplement). A nil Tally is always safe to call through.
type Tally interface {
	Increment(category Category, day string)
}

// Writer appends gzipped JSONL records to one file per UTC day under dir.
type Writer struct {
	dir   string
	tally Tally

	mu      sync.Mutex
	day     string
	file    *os.File
	gz      *gzip.Writer
}

func NewWriter(dir string, tally Tally) *Writer {
	return &Writer{dir: dir, tally: tally}
}

// Record classifies raw and appends one entry to today's log file. Errors
// opening or writing the log are returned but are never meant to fail the
// request that triggered them — callers log-and-continue.
func (w *Writer) Record(remoteIP, errorType string, raw []byte) error {
	category, _ := Classify(raw)
	snippet := raw
	if len(snippet) > maxSnippetLen {
		snippet = snippet[:maxSnippetLen]
	}

	rec := Record{
		Timestamp: time.Now().UTC(),
		RemoteIP:  remoteIP,
		Category:  category,
		ErrorType: errorType,
		Snippet:   string(snippet),
	}

	if err := w.appendJSONL(rec); err != nil {
		return err
	}

	if w.tally != nil {
		w.tally.Increment(category, rec.Timestamp.Format("2006-01-02"))
	}
	return nil
}

func (w *Writer) appendJSONL(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := rec.Timestamp.Format("2006-01-02")
	if err := w.rotateLocked(day); err != nil {
		return err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.gz.Write(append(line, '\n')); err != nil {
		return err
	}
	return w.gz.Flush()
}

// rotateLocked opens a new day's file when the UTC date has rolled over.
// Callers must hold w.mu.
func (w *Writer) rotateLocked(day string) error {
	if w.day == day && w.file != nil {
		return nil
	}
	if w.gz != nil {
		w.gz.Close()
	}
	if w.file != nil {
		w.file.Close()
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("attacklog: could not create directory: %w", err)
	}
	path := filepath.Join(w.dir, fmt.Sprintf("attacks_%s.jsonl.gz", day))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("attacklog: could not open log file: %w", err)
	}

	w.file = f
	w.gz = gzip.NewWriter(f)
	w.day = day
	return nil
}

// Close flushes and closes the currently open log file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gz != nil {
		w.gz.Close()
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
