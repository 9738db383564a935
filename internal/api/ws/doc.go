// Package ws exposes the window tree to remote clients over WebSocket.
//
// Each socket becomes one tree connection. Frames are JSON objects with a
// "type" field; window ids travel in their uint32 transport form.
//
// Roles (query parameter "role"):
//   - client: a fresh connection that creates windows and asks the window
//     manager for top level windows (default)
//   - wm: the window manager of the display named by "display"
//   - pending: waits for another client to embed it; the server replies
//     with a "pending" frame carrying the embed token
//
// Message Types (Client → Server):
//   - new_window, new_top_level_window, delete_window
//   - add_window, remove_window_from_parent, reorder_window
//   - add_transient_window, remove_transient_window_from_parent
//   - set_visibility, set_bounds, set_property, set_client_area
//   - set_can_focus, set_cursor, set_focus
//   - set_mask_layer, add_decoration
//   - embed, get_window_tree
//   - input_event_ack, dispatch_input_event (window manager only)
//   - wm_response, wm_created_top_level_window (window manager only)
//   - ping
//
// Message Types (Server → Client):
//   - connected, embed, unembed, embedded_app_disconnected
//   - change_completed, top_level_created, window_tree
//   - hierarchy_changed, reordered, window_deleted
//   - bounds_changed, client_area_changed, property_changed
//   - visibility_changed, drawn_state_changed, cursor_changed
//   - transient_window_added, transient_window_removed
//   - focused, input_event, viewport_metrics_changed
//   - wm_set_bounds, wm_set_property, wm_create_top_level_window
//   - pending, pong, error
//
// Example Usage:
//
//	loop := tree.NewLoop(manager, 1024)
//	handler := ws.NewHandler(loop, ws.NewPendingRegistry(metrics), logger, metrics, ws.DefaultConfig())
//	router.GET("/stream", handler.HandleConnection)
package ws
