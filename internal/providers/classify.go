package providers

import "net/http"

// classifyHTTPStatus applies the shared HTTP-to-Outcome mapping every
// adapter uses after a round trip: 429/503/5xx are transient, other 4xx are
// terminal, 2xx falls through to the payload-level classification.
func classifyHTTPStatus(status int) (Outcome, bool) {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable, status >= 500:
		return OutcomeRateLimited, true
	case status >= 400:
		return OutcomeTerminalError, true
	default:
		return "", false
	}
}

func errResult(source string, outcome Outcome, reason string) FetchResult {
	return FetchResult{Source: source, Outcome: outcome, Reason: reason}
}
