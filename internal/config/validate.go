package config

import (
	"fmt"
	"strings"
)

// Result is the outcome of a tiered validation pass: Fatals prevent
// startup, Warnings are logged but the clamped/defaulted value is used.
type Result struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether any fatal error was found.
func (r Result) HasFatals() bool {
	return len(r.Fatals) > 0
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the config for invalid or out-of-range values. Ports
// and file paths that would prevent the server from binding at all are
// fatal; everything else is clamped to a safe value and reported as a
// warning so the process can still start.
func (c *Config) Validate() Result {
	var r Result

	r.checkPort("auth_port", c.AuthPort)
	r.checkPort("screen_port", c.ScreenPort)
	r.checkPort("input_port", c.InputPort)

	if c.AuthPort != 0 && c.AuthPort == c.ScreenPort {
		r.Fatals = append(r.Fatals, fmt.Errorf("auth_port and screen_port must differ, both %d", c.AuthPort))
	}
	if c.AuthPort != 0 && c.AuthPort == c.InputPort {
		r.Fatals = append(r.Fatals, fmt.Errorf("auth_port and input_port must differ, both %d", c.AuthPort))
	}
	if c.ScreenPort != 0 && c.ScreenPort == c.InputPort {
		r.Fatals = append(r.Fatals, fmt.Errorf("screen_port and input_port must differ, both %d", c.ScreenPort))
	}

	if c.DBFile == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("db_file must not be empty"))
	}

	if c.FrameQuality < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("frame_quality %d below minimum 1, clamping", c.FrameQuality))
		c.FrameQuality = 1
	} else if c.FrameQuality > 100 {
		r.Warnings = append(r.Warnings, fmt.Errorf("frame_quality %d exceeds maximum 100, clamping", c.FrameQuality))
		c.FrameQuality = 100
	}

	if c.FrameIntervalMS < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("frame_interval_ms %d below minimum 1, clamping", c.FrameIntervalMS))
		c.FrameIntervalMS = 1
	} else if c.FrameIntervalMS > 1000 {
		r.Warnings = append(r.Warnings, fmt.Errorf("frame_interval_ms %d exceeds maximum 1000, clamping", c.FrameIntervalMS))
		c.FrameIntervalMS = 1000
	}

	if c.FrameScalePercent < 10 {
		r.Warnings = append(r.Warnings, fmt.Errorf("frame_scale_percent %d below minimum 10, clamping", c.FrameScalePercent))
		c.FrameScalePercent = 10
	} else if c.FrameScalePercent > 100 {
		r.Warnings = append(r.Warnings, fmt.Errorf("frame_scale_percent %d exceeds maximum 100, clamping", c.FrameScalePercent))
		c.FrameScalePercent = 100
	}

	if c.MonitorIndex < 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("monitor_index %d below minimum 0, clamping", c.MonitorIndex))
		c.MonitorIndex = 0
	}

	if c.AuthReadTimeoutSeconds < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("auth_read_timeout_seconds %d below minimum 1, clamping", c.AuthReadTimeoutSeconds))
		c.AuthReadTimeoutSeconds = 1
	}
	if c.HandshakeTimeoutSeconds < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("handshake_timeout_seconds %d below minimum 1, clamping", c.HandshakeTimeoutSeconds))
		c.HandshakeTimeoutSeconds = 1
	}
	if c.InputReadTimeoutSeconds < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("input_read_timeout_seconds %d below minimum 1, clamping", c.InputReadTimeoutSeconds))
		c.InputReadTimeoutSeconds = 1
	}

	if c.MaxConcurrentAuthConns < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("max_concurrent_auth_conns %d below minimum 1, clamping", c.MaxConcurrentAuthConns))
		c.MaxConcurrentAuthConns = 1
	} else if c.MaxConcurrentAuthConns > 1000 {
		r.Warnings = append(r.Warnings, fmt.Errorf("max_concurrent_auth_conns %d exceeds maximum 1000, clamping", c.MaxConcurrentAuthConns))
		c.MaxConcurrentAuthConns = 1000
	}

	if c.SessionTTLHours < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("session_ttl_hours %d below minimum 1, clamping", c.SessionTTLHours))
		c.SessionTTLHours = 1
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error), defaulting to info", c.LogLevel))
		c.LogLevel = "info"
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json), defaulting to text", c.LogFormat))
		c.LogFormat = "text"
	}

	return r
}

func (r *Result) checkPort(name string, port int) {
	if port < 1 || port > 65535 {
		r.Fatals = append(r.Fatals, fmt.Errorf("%s %d is outside the valid port range 1-65535", name, port))
	}
}
