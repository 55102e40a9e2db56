//go:build !darwin

package main

import "github.com/sebfried/menubarmaid/internal/config"

func startBundle(config.AppConfig) {}
