package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// RunLog is the append-only run_log.txt writer. Each line is prefixed with
// the legacy "[YYYY-MM-DD HH:MM:SS]" timestamp format the pipeline's
// operators' tooling already parses; grailbio/base/log's own format differs
// and is reserved for process stderr diagnostics.
type RunLog struct {
	mu sync.Mutex
	f  file.File
	ctx context.Context
}

// OpenRunLog creates (or truncates) run_log.txt under outputRoot.
func OpenRunLog(ctx context.Context, outputRoot string) (*RunLog, error) {
	p := outputRoot + "/run_log.txt"
	f, err := file.Create(ctx, p)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", p)
	}
	return &RunLog{f: f, ctx: ctx}, nil
}

// Printf appends one timestamped line.
func (l *RunLog) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
	_, _ = l.f.Writer(l.ctx).Write([]byte(line))
}

// Close flushes and closes the underlying file.
func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close(l.ctx)
}
