// Package config provides 12-factor configuration management for the window
// server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, CORS origins)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP limit on opening streams
//   - Session: Per-connection queue, buffer and message limits
//   - Display: Startup displays, inline or from a YAML layout file
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	layout, err := cfg.Display.Layout()
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - EVENT_QUEUE_LIMIT, SEND_BUFFER, MESSAGE_RPS, MESSAGE_BURST, LOOP_BACKLOG
//   - DISPLAYS_FILE, DISPLAY_WIDTH, DISPLAY_HEIGHT, DISPLAY_SCALE
package config
