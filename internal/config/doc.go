// Package config loads typewire configuration.
//
// Configuration comes from three layers, later ones winning:
//
//  1. Defaults from New.
//  2. typewire.json, optional when no path is given.
//  3. TYPEWIRE_* environment variables. A .env file next to the
//     configuration file is loaded first and never overrides variables
//     that are already set.
//
// Example typewire.json:
//
//	{
//	  "relay": {
//	    "addr": "0.0.0.0:9270",
//	    "topic": "standup",
//	    "sendQueue": 256,
//	    "writeTimeout": "10s"
//	  },
//	  "client": {
//	    "url": "ws://localhost:9270/ws",
//	    "name": "Al",
//	    "color": 9,
//	    "pingInterval": "5s"
//	  },
//	  "log": {"level": "info", "format": "text"}
//	}
//
// Resolve applies all layers and validates the result.
package config
