package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthPath is checked by CheckBackendRunning.
const HealthPath = "/healthz"

// CheckBackendRunning checks that the app backend at baseURL answers HTTP.
// Any response counts as reachable, since only the demo backend serves
// HealthPath; transport failures come back as a *ConnectionError.
func CheckBackendRunning(ctx context.Context, baseURL string) error {
	endpoint := strings.TrimSuffix(baseURL, "/") + HealthPath

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ClassifyConnectionError(err, baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend is not responding correctly (status: %d)", resp.StatusCode)
	}
	return nil
}

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}
