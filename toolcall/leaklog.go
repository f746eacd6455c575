package toolcall

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/logging"
)

// LeakLogger writes one JSON file per recovered leaked tool call to a
// per-process log directory (anchors that could not be parsed are not
// logged), independent of whether
// ENABLE_LEAKED_TOOL_FIX is set (spec.md §4.G.4, original_source
// dev_scripts/test_leaked_tool_call_logging.py). This is a logging hook,
// not the logging transport itself — spec.md §1 keeps the transport out of
// scope; only the JSON framing and directory layout are implemented here.
type LeakLogger struct {
	dir    string
	logger logging.Logger
	seq    atomic.Uint64
}

func NewLeakLogger(dir string, logger logging.Logger) *LeakLogger {
	if logger == nil {
		logger = logging.NoopLogger{}
	}
	return &LeakLogger{dir: dir, logger: logger}
}

type leakRecord struct {
	Timestamp string         `json:"timestamp"`
	ToolCall  ir.ToolCall    `json:"tool_call"`
	Repaired  bool           `json:"repaired"`
	FixApplied bool          `json:"fix_applied"`
}

// Record writes one leak-log entry. Failures to write are logged and
// otherwise swallowed — per spec.md §7, leaked-tool extraction never fails
// the request.
func (l *LeakLogger) Record(ctx context.Context, call ir.ToolCall, repaired, fixApplied bool) {
	if l == nil || l.dir == "" {
		return
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		l.logger.Warn(ctx, "leak log: could not create directory", logging.F("dir", l.dir), logging.F("error", err))
		return
	}

	rec := leakRecord{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		ToolCall:   call,
		Repaired:   repaired,
		FixApplied: fixApplied,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		l.logger.Warn(ctx, "leak log: could not marshal record", logging.F("error", err))
		return
	}

	n := l.seq.Add(1)
	name := fmt.Sprintf("leaked_tool_%s_%06d.json", time.Now().UTC().Format("20060102T150405"), n)
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		l.logger.Warn(ctx, "leak log: could not write record", logging.F("path", path), logging.F("error", err))
	}
}
