package cli

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress shows a spinner while the CLI waits on the network. It does
// nothing in quiet mode.
type Progress struct {
	s *spinner.Spinner
}

// NewProgress creates a spinner writing to w, or a no-op one when quiet is set.
func NewProgress(w io.Writer, quiet bool) *Progress {
	if quiet {
		return &Progress{}
	}
	return &Progress{s: spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))}
}

// Start shows msg next to the spinner.
func (p *Progress) Start(msg string) {
	if p.s == nil {
		return
	}
	p.s.Suffix = " " + msg
	p.s.Start()
}

// Update replaces the message of a running spinner.
func (p *Progress) Update(msg string) {
	if p.s == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = " " + msg
	p.s.Unlock()
}

// Fail stops the spinner and leaves msg in red.
func (p *Progress) Fail(msg string) {
	if p.s == nil {
		return
	}
	p.s.FinalMSG = text.FgRed.Sprint(msg) + "\n"
	p.s.Stop()
}

// Stop stops the spinner without a final message.
func (p *Progress) Stop() {
	if p.s == nil {
		return
	}
	p.s.Stop()
}
