package main

import "time"

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
	NoColor    bool
}

// UpFlags holds flags for the up command.
type UpFlags struct {
	Serve       string // address of the embedded control API, empty disables
	APIBase     string
	MetricsAddr string // address of the /metrics endpoint, empty disables
	Watch       bool
}

// APIFlags holds connection flags for commands that talk to a running
// supervisor.
type APIFlags struct {
	URL     string
	Timeout time.Duration
}

// SelectorFlags picks the start/stop target: exactly one of group or
// service.
type SelectorFlags struct {
	Group   string
	Service string
}
