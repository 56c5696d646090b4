package driven

// ConfigStore provides access to application settings through
// dot-notation keys (e.g. "openrouter.api_key", "index.chunk_size").
// Typed getters return the zero value for missing or mistyped keys so
// callers can layer their own defaults on top.
type ConfigStore interface {
	// Get returns the raw value for a key and whether it exists.
	Get(key string) (any, bool)

	// GetString returns a string value, or "" when absent or mistyped.
	GetString(key string) string

	// GetInt returns an integer value, or 0 when absent or mistyped.
	GetInt(key string) int

	// GetFloat returns a numeric value, or 0 when absent or mistyped.
	// Integer-typed values are widened.
	GetFloat(key string) float64

	// GetBool returns a boolean value, or false when absent or mistyped.
	GetBool(key string) bool

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage, replacing in-memory state.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
