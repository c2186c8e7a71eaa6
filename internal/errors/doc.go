// Package errors provides coded, actionable error messages for the typewire CLI.
//
// Each error has a unique code (e.g., "T001") that maps to a short message,
// an optional explanation and a fix suggestion. Codes are grouped by
// category:
//
//   - config (T001-T009): configuration file, .env and environment overrides
//   - transport (T010-T019): relay startup and connections
//   - capture (T020-T029): recorded frame streams
//   - cli (T030-T039): command arguments
//
// # Usage
//
//	err := errors.New("T011").
//	    WithDetailf("dial %s", url).
//	    Wrap(cause)
//
//	errors.Fprint(os.Stderr, err)
//	// Output:
//	// ERROR T011: Connection to relay failed
//	//
//	//   dial ws://localhost:9270/ws
//	//
//	//   Cause: connection refused
//	//
//	//   Hint: Check that a relay is running at the configured URL
package errors
