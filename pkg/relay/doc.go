// Package relay implements the typewire relay: a WebSocket hub that assigns
// participant ids and broadcasts every edit to every connection.
//
// Connections send client frames ([tag][payload], see protocol.ParseClientFrame).
// The hub stamps each with the sender's participant id and broadcasts the
// resulting server frame:
//
//   - Init from a connection without an id gets the next id. The author's
//     copy carries the echo flag. Init while an id is held is dropped.
//   - Append and Delete without an id are dropped.
//   - Done broadcasts and releases the id. A connection that disconnects
//     while holding an id gets a Done on its behalf.
//   - Ping is answered with a Pong to the sender only.
//
// New connections first receive the current topic. Each connection has a
// bounded send queue; a connection that falls behind is closed.
//
// # Usage
//
//	hub := relay.NewHub(relay.DefaultConfig(), relay.WithMetrics(m))
//	go hub.Run(ctx)
//	http.ListenAndServe(":9270", hub.Handler())
package relay
