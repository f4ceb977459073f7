package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"connectkit/internal/exchange"
	"connectkit/internal/lifecycle"
	"connectkit/pkg/connect"
)

func TestPrinter_OnStateChanged(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		states  []lifecycle.Snapshot
		want    []string
		skipped []string
	}{
		{
			name: "settled states only",
			states: []lifecycle.Snapshot{
				{State: lifecycle.StateLoggingIn},
				{State: lifecycle.StateTokenPending},
				{State: lifecycle.StateReady},
			},
			want:    []string{"ready(false)"},
			skipped: []string{"logging_in", "token_pending"},
		},
		{
			name:    "verbose",
			verbose: true,
			states: []lifecycle.Snapshot{
				{State: lifecycle.StateLoggingIn},
				displayedSnapshot(connect.StatusEnabled),
			},
			want: []string{"logging_in", "displayed(enabled)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := NewPrinter(&buf, "http://localhost:8080", tt.verbose)

			for _, s := range tt.states {
				p.OnStateChanged(s)
			}

			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, s := range tt.skipped {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestPrinter_OnError(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "http://localhost:8080", false)

	p.OnError(lifecycle.ErrorEvent{Op: lifecycle.OpLogin, Err: &exchange.Error{Op: "login", Kind: exchange.ErrorKindUnsuccessful, Status: 400}})
	p.OnError(lifecycle.ErrorEvent{Op: lifecycle.OpEnable, Err: errors.New("boom")})

	assert.Contains(t, buf.String(), "Error: login failed")
	assert.Contains(t, buf.String(), "⚠ boom")
}

func TestPrinter_OnRedirect(t *testing.T) {
	tests := []struct {
		result connect.RedirectResult
		want   string
	}{
		{connect.RedirectResult{NextStep: connect.NextStepComplete}, "Authorization complete"},
		{connect.RedirectResult{NextStep: connect.NextStepServiceConnection, ServiceID: "grocery_express"}, "Connect the grocery_express service"},
		{connect.RedirectResult{NextStep: connect.NextStepError, ErrorType: connect.ErrorTypeAccountCreation}, "authorization failed: account_creation"},
		{connect.RedirectResult{NextStep: connect.NextStepUnknown}, "Unrecognised redirect unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.result.String(), func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinter(&buf, "", false).OnRedirect(tt.result)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}
