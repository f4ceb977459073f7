package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"connectkit/internal/exchange"
	"connectkit/internal/lifecycle"
	"connectkit/internal/pending"
	"connectkit/internal/platform"
	"connectkit/internal/prefs"
	"connectkit/pkg/logging"
)

// Services holds the components behind the CLI commands.
type Services struct {
	// Exchange talks to the app backend.
	Exchange *exchange.Client

	// Platform talks to the platform's Connection API.
	Platform *platform.Client

	// Prefs persists the user email and display settings.
	Prefs *prefs.Store

	// Machine drives the connection authorization lifecycle.
	Machine *lifecycle.Machine

	// Registry collects the lifecycle metrics.
	Registry *prometheus.Registry
}

// InitializeServices wires the exchange and platform clients into a
// lifecycle machine. The stored email is the machine's credential source, so
// a redirect that arrives before login still resolves.
func InitializeServices(cfg *Config, listener lifecycle.Listener) (*Services, error) {
	if cfg.ConnectKit == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	ck := cfg.ConnectKit

	store, err := prefs.Open(ck.Storage.Dir)
	if err != nil {
		return nil, err
	}
	anonymousID, err := store.AnonymousID()
	if err != nil {
		return nil, err
	}

	policy := pending.CancelSuperseded
	if ck.Lifecycle.KeepSuperseded {
		policy = pending.KeepSuperseded
	}

	exchangeClient, err := exchange.NewClient(exchange.Options{
		BaseURL:  ck.Backend.URL,
		Timeout:  ck.Backend.Timeout,
		RetryMax: ck.Backend.RetryMax,
		Policy:   policy,
		Logger:   logging.Logger("Exchange"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange client: %w", err)
	}

	platformClient, err := platform.NewClient(platform.Options{
		BaseURL:     ck.Platform.URL,
		AnonymousID: anonymousID,
		InviteCode:  ck.Platform.InviteCode,
		Timeout:     ck.Platform.Timeout,
		Logger:      logging.Logger("Platform"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create platform client: %w", err)
	}

	registry := prometheus.NewRegistry()
	machine, err := lifecycle.New(lifecycle.Options{
		Exchanger:    exchangeClient,
		Platform:     platformClient,
		Accounts:     platformClient,
		Credentials:  store,
		ConnectionID: ck.Connection.ID,
		EmbedBaseURL: ck.Platform.EmbedURL,
		InviteCode:   ck.Platform.InviteCode,
		AnonymousID:  anonymousID,
		Listener:     listener,
		Policy:       policy,
		Metrics:      lifecycle.NewMetrics(registry),
	})
	if err != nil {
		return nil, err
	}
	logging.Debug("Services", "Lifecycle ready for connection %s (policy %s)", ck.Connection.ID, policy)

	return &Services{
		Exchange: exchangeClient,
		Platform: platformClient,
		Prefs:    store,
		Machine:  machine,
		Registry: registry,
	}, nil
}

// Close cancels everything in flight and logs the lifecycle metrics at
// debug level.
func (s *Services) Close() {
	s.Machine.Close()

	lines, err := s.MetricsSummary()
	if err != nil {
		logging.Debug("Services", "Failed to gather lifecycle metrics: %v", err)
		return
	}
	for _, line := range lines {
		logging.Debug("Metrics", "%s", line)
	}
}

// MetricsSummary renders every non-zero lifecycle series as
// `name{label="value"} value`, sorted. Histograms report their sample count.
func (s *Services) MetricsSummary() ([]string, error) {
	families, err := s.Registry.Gather()
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name, value := mf.GetName(), 0.0
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				value = m.GetCounter().GetValue()
			case dto.MetricType_HISTOGRAM:
				name += "_count"
				value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			if value == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s%s %g", name, formatLabels(m.GetLabel()), value))
		}
	}
	sort.Strings(lines)
	return lines, nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
