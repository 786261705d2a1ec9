// Package parsers converts raw scanner output (Checkov, Gitleaks,
// Trivy) into the dashboard's normalized finding types.
package parsers

import (
	"strings"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const redactedPlaceholder = "***REDACTED***"

// RedactSecret reduces a raw secret to a display form showing only
// the first and last four characters. Anything shorter than eight
// characters is fully redacted.
func RedactSecret(secret string) string {
	if len(secret) < 8 {
		return redactedPlaceholder
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// mapCheckovSeverity normalizes Checkov severities; anything outside
// the known set falls back to MEDIUM.
func mapCheckovSeverity(severity string) string {
	switch upper := strings.ToUpper(severity); upper {
	case "CRITICAL", "HIGH", "MEDIUM", "LOW", "INFO":
		return upper
	}
	return "MEDIUM"
}
