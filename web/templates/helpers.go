package templates

import (
	"net/url"
	"time"
)

// apiURL builds a URL below the API prefix, carrying the access token when
// one is configured.
func apiURL(basePath, path, token string) string {
	u := basePath + path
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

// thumbURL returns the thumbnail URL for a screenshot id.
func thumbURL(basePath, id, token string) string {
	return apiURL(basePath, "/api/screenshots/"+url.PathEscape(id)+"/thumbnail", token)
}

// fileURL returns the raw file URL for a screenshot id.
func fileURL(basePath, id, token string) string {
	return apiURL(basePath, "/api/screenshots/"+url.PathEscape(id)+"/file", token)
}

// formatTime renders a creation time the way the CLI listing does.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// truncateText truncates a string to maxLen characters, appending "..." if truncated.
func truncateText(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
