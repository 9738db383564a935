// Package logging builds the server's zap logger from configuration.
//
// Production builds log sampled JSON; development builds log colored console
// lines and panic on DPanic, which the tree uses for broken collaborator
// contracts such as dispatching input to a window with no display.
//
// Each area of the server logs under its own name: "tree" for the window
// tree and its connections, "trace" for request spans, and "ws" for
// transport peers.
//
// Example Usage:
//
//	logger, err := logging.New(cfg.Logging)
//	manager := tree.NewManager(logger.Tree())
//	peer := logger.Peer(id.NewPeerID().String())
package logging
