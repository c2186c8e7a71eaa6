// Package client connects to a typewire relay and mirrors the conversation
// into a session.Session.
//
// A Client runs three goroutines after Start:
//
//   - ReadLoop reads binary messages and queues them. When the queue is
//     full the frame is dropped and counted.
//   - EventLoop decodes queued frames and applies them to the session one
//     at a time, in arrival order. Malformed frames are logged, counted and
//     skipped; the stream continues.
//   - PingLoop sends a Ping every PingInterval. The answering Pong updates
//     Latency.
//
// Init, Append, Delete and Done send client frames for the caller's own
// message. The relay assigns the participant id, so the caller learns it
// from the echoed Init (session.Message.Mine).
//
// # Usage
//
//	sess := session.New()
//	c, err := client.Dial(ctx, client.DefaultConfig("ws://localhost:9270/ws"), sess)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	c.Start()
//
//	c.Init(9, "Al")
//	c.Append(0, "hello")
//	c.Done()
//
// There is no reconnect. Closed reports when the connection has gone away
// and every frame received before that has been applied.
package client
