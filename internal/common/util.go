package common

import "strings"

// NormalizeEmail lowercases and trims an email address. All email
// comparisons in the pipeline run on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenPrefix returns a short, log-safe prefix of a token. Raw tokens must
// never be logged.
func TokenPrefix(token string) string {
	const n = 8
	if len(token) <= n {
		return token
	}
	return token[:n] + "..."
}
