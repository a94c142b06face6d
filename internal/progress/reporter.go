package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback during document ingestion.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive terminal,
// or a CIReporter if the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{out: os.Stderr}
	}
	return &TerminalReporter{}
}

// Func adapts r to the indexer's (processed, total, file) callback. The
// bar is started lazily because the number of changed documents is only
// known once ingestion has planned its work. Calls may come from several
// workers at once.
func Func(r Reporter) func(processed, total int, currentFile string) {
	var (
		mu      sync.Mutex
		started bool
	)
	return func(processed, total int, currentFile string) {
		mu.Lock()
		defer mu.Unlock()
		if !started {
			r.Start(total)
			started = true
		}
		r.Update(processed, filepath.Base(currentFile))
		if processed >= total {
			r.Finish()
			started = false
		}
	}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Ingesting documents"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	out   io.Writer
	total int
}

func (r *CIReporter) writer() io.Writer {
	if r.out == nil {
		return os.Stderr
	}
	return r.out
}

func (r *CIReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(r.writer(), "Ingesting %d document(s)\n", total)
}

func (r *CIReporter) Update(current int, message string) {
	fmt.Fprintf(r.writer(), "[%d/%d] %s\n", current, r.total, message)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(r.writer(), "Ingestion complete")
}
