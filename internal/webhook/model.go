package webhook

import (
	"slices"

	"github.com/sebfried/menubarmaid/internal/event"
)

// Endpoint is a configured webhook target.
type Endpoint struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
	// Events lists the event types delivered to this endpoint. Empty means
	// screenshot.detected only.
	Events []string `json:"events"`
}

// Webhook types.
const (
	TypeGeneric = "generic"
	TypeDiscord = "discord"
	TypeSlack   = "slack"
	TypeGotify  = "gotify"
)

// Wants reports whether the endpoint should receive events of type t.
func (e Endpoint) Wants(t event.Type) bool {
	if len(e.Events) == 0 {
		return t == event.ScreenshotDetected
	}
	return slices.Contains(e.Events, string(t))
}

// eventTypes returns the distinct event types any endpoint wants.
func eventTypes(endpoints []Endpoint) []event.Type {
	var out []event.Type
	for _, ep := range endpoints {
		names := ep.Events
		if len(names) == 0 {
			names = []string{string(event.ScreenshotDetected)}
		}
		for _, n := range names {
			if t := event.Type(n); !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	return out
}
