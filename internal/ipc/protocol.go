// Package ipc serves the desktop front end over a unix socket using
// newline-delimited JSON.
package ipc

import (
	"errors"

	"github.com/sebfried/menubarmaid/internal/launcher"
	"github.com/sebfried/menubarmaid/internal/screenshot"
)

// Commands accepted by the server.
const (
	CommandGetScreenshots = "get-screenshots"
	CommandOpenFile       = "open-file"
	CommandCopyPath       = "copy-path"
	CommandSubscribe      = "subscribe"
	CommandMenuGet        = "menu.get"
	CommandMenuActivate   = "menu.activate"
)

// EventScreenshotsUpdated is pushed to subscribed connections.
const EventScreenshotsUpdated = "screenshots-updated"

// ErrUnknownCommand is reported for a request whose command is not handled.
var ErrUnknownCommand = errors.New("unknown command")

// Request is one line sent by the front end.
type Request struct {
	ID      int64  `json:"id,omitempty"`
	Command string `json:"command"`
	Path    string `json:"path,omitempty"`
	Item    string `json:"item,omitempty"`
}

// Response is a reply to a Request or, with Event set, a pushed update.
type Response struct {
	ID          int64               `json:"id,omitempty"`
	OK          bool                `json:"ok,omitempty"`
	Error       string              `json:"error,omitempty"`
	Event       string              `json:"event,omitempty"`
	Screenshots []screenshot.Record `json:"screenshots,omitzero"`
	Items       []launcher.Item     `json:"items,omitzero"`
}
