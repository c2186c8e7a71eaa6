package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (T001-T009)
	// ============================================

	"T001": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create typewire.json or pass --config with the path to one",
	},
	"T002": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Detail:     "The configuration file could not be read or is not valid JSON.",
		Suggestion: "Check that typewire.json is valid JSON",
	},
	"T003": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"T004": {
		Category:   CategoryConfig,
		Message:    "Invalid environment override",
		Detail:     "A TYPEWIRE_* environment variable could not be parsed.",
		Suggestion: "Durations use Go syntax such as 10s or 250ms",
	},
	"T005": {
		Category: CategoryConfig,
		Message:  "Failed to load .env file",
	},

	// ============================================
	// Transport Errors (T010-T019)
	// ============================================

	"T010": {
		Category:   CategoryTransport,
		Message:    "Relay failed to start",
		Suggestion: "Check that the address is free, or pass a different --addr",
	},
	"T011": {
		Category:   CategoryTransport,
		Message:    "Connection to relay failed",
		Suggestion: "Check that a relay is running at the configured URL",
	},
	"T012": {
		Category: CategoryTransport,
		Message:  "Send failed",
		Detail:   "The connection closed while a frame was being written.",
	},

	// ============================================
	// Capture Errors (T020-T029)
	// ============================================

	"T020": {
		Category: CategoryCapture,
		Message:  "Cannot open capture file",
	},
	"T021": {
		Category: CategoryCapture,
		Message:  "Corrupt capture stream",
		Detail:   "The capture file is truncated or contains an invalid length prefix.",
	},

	// ============================================
	// CLI Errors (T030-T039)
	// ============================================

	"T030": {
		Category: CategoryCLI,
		Message:  "Invalid argument",
	},
	"T031": {
		Category: CategoryCLI,
		Message:  "Interrupted",
	},
}
