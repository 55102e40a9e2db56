// Package templates renders the HTML surfaces served by the API.
package templates

import "github.com/sebfried/menubarmaid/internal/screenshot"

//go:generate templ generate

// GridData is the view model of the screenshot grid page.
type GridData struct {
	Title      string
	BasePath   string
	Token      string
	WatchedDir string
	Entries    []screenshot.Entry
}

// gridConfig is handed to the page script as a JSON data block.
type gridConfig struct {
	Base  string `json:"base"`
	Token string `json:"token"`
}

func (d GridData) config() gridConfig {
	return gridConfig{Base: d.BasePath, Token: d.Token}
}
