// Package server wires the window server together.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, metrics, recovery, stream rate limiting)
//   - The window tree, its displays and the loop that serializes it
//   - The WebSocket transport clients attach through
//
// Routes:
//   - GET /health: liveness plus a metrics snapshot
//   - GET /displays: displays with their window manager and focus
//   - GET /stream: WebSocket upgrade (see package ws)
//   - GET /metrics: Prometheus exposition
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Create displays from the layout
//  4. Setup HTTP routes and middleware
//  5. Start the tree loop and the HTTP server
//  6. Graceful shutdown when the context ends
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
