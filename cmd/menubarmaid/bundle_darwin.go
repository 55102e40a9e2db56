//go:build darwin

package main

import (
	"github.com/tmc/macgo"

	"github.com/sebfried/menubarmaid/internal/config"
)

// startBundle relaunches the agent inside an app bundle so macOS grants it
// Desktop access and keeps it out of the Dock.
func startBundle(app config.AppConfig) {
	cfg := macgo.NewConfig()
	cfg.ApplicationName = app.AppName
	cfg.BundleID = app.BundleID
	cfg.AddPlistEntry("LSUIElement", true)
	macgo.Configure(cfg)
	macgo.Start()
}
