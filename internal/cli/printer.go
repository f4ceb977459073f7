package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/text"

	"connectkit/internal/lifecycle"
	"connectkit/pkg/connect"
)

// Printer is a lifecycle.Listener that narrates the lifecycle on a terminal.
// The machine calls it from a single goroutine, so writes never interleave.
type Printer struct {
	w        io.Writer
	endpoint string
	verbose  bool
}

var _ lifecycle.Listener = (*Printer)(nil)

// NewPrinter creates a Printer. endpoint is the backend URL used to classify
// transport failures. Intermediate states are only printed when verbose is set.
func NewPrinter(w io.Writer, endpoint string, verbose bool) *Printer {
	return &Printer{w: w, endpoint: endpoint, verbose: verbose}
}

// OnStateChanged prints settled states, and every state in verbose mode.
func (p *Printer) OnStateChanged(s lifecycle.Snapshot) {
	switch s.State {
	case lifecycle.StateReady, lifecycle.StateDisplayed, lifecycle.StateUnauthenticated:
	default:
		if !p.verbose {
			return
		}
	}
	label := s.String()
	if s.State == lifecycle.StateDisplayed {
		label = StatusColors(s.Status()).Sprint(label)
	}
	fmt.Fprintf(p.w, "%s %s\n", text.FgHiBlack.Sprint("state:"), label)
}

// OnError prints the failure. Login failures are errors since they leave
// the user logged out; everything else is a warning.
func (p *Printer) OnError(e lifecycle.ErrorEvent) {
	msg := Describe(e.Err, p.endpoint)
	if e.IsAuthentication() {
		fmt.Fprintln(p.w, text.FgRed.Sprint("Error: "+msg))
		return
	}
	fmt.Fprintln(p.w, text.FgYellow.Sprint(FormatWarning(msg)))
}

// OnRedirect prints the outcome of the web authorization flow.
func (p *Printer) OnRedirect(r connect.RedirectResult) {
	switch r.NextStep {
	case connect.NextStepComplete:
		fmt.Fprintln(p.w, text.FgGreen.Sprint(FormatSuccess("Authorization complete")))
	case connect.NextStepServiceConnection:
		fmt.Fprintln(p.w, FormatWarning(fmt.Sprintf("Connect the %s service in the app, then run connectkit connect again", r.ServiceID)))
	case connect.NextStepError:
		fmt.Fprintln(p.w, text.FgRed.Sprint(FormatError(fmt.Errorf("authorization failed: %s", orDash(r.ErrorType)))))
	default:
		fmt.Fprintln(p.w, FormatWarning("Unrecognised redirect "+r.String()))
	}
}
