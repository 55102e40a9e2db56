package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/sebfried/menubarmaid/internal/event"
)

// formatPayload returns the request body and content-type for a webhook delivery.
func formatPayload(ep *Endpoint, e event.Event) ([]byte, string) {
	switch ep.Type {
	case TypeDiscord:
		return formatDiscord(e)
	case TypeSlack:
		return formatSlack(e)
	case TypeGotify:
		return formatGotify(e)
	default:
		return formatGeneric(e)
	}
}

func formatGeneric(e event.Event) ([]byte, string) {
	payload := map[string]any{
		"event":     string(e.Type),
		"timestamp": e.Timestamp,
	}
	if e.Entry != nil {
		payload["screenshot"] = e.Entry
	}
	if e.Screenshots != nil {
		payload["screenshots"] = e.Screenshots
	}
	if e.Data != nil {
		payload["data"] = e.Data
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func formatDiscord(e event.Event) ([]byte, string) {
	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       title(e),
				"description": formatDescription(e),
				"color":       3447003,
				"timestamp":   e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			},
		},
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func formatSlack(e event.Event) ([]byte, string) {
	payload := map[string]any{
		"text": fmt.Sprintf("*%s*\n%s", title(e), formatDescription(e)),
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func formatGotify(e event.Event) ([]byte, string) {
	payload := map[string]any{
		"title":   title(e),
		"message": formatDescription(e),
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func title(e event.Event) string {
	return fmt.Sprintf("menubarmaid: %s", e.Type)
}

func formatDescription(e event.Event) string {
	switch {
	case e.Entry != nil:
		return fmt.Sprintf("New screenshot %s (%s)", e.Entry.FileName, e.Entry.CreationTime.UTC().Format("2006-01-02 15:04:05"))
	case e.Type == event.ScreenshotsUpdated:
		return fmt.Sprintf("%d screenshots on the desktop", len(e.Screenshots))
	case e.Data == nil:
		return string(e.Type)
	}
	if msg, ok := e.Data["message"].(string); ok {
		return msg
	}
	b, _ := json.Marshal(e.Data)
	return string(b)
}
