// Package main is the entry point for the window server.
//
// The server hosts a shared window tree for many clients. Each display
// gets a root window; a window manager attaches to it, and applications
// attach over WebSocket to create windows, embed each other and receive
// input.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# One 1920x1080 display
//	./server -port 8000
//
//	# Displays from a layout file, development logging
//	./server -displays displays.yaml -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
