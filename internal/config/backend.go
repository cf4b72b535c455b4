package config

// Backend persists settings by dotted key. A missing key reports ok=false
// with a nil error.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	// Delete removes key; removing a missing key is not an error.
	Delete(key string) error
	// Location names where settings live, for display.
	Location() string
}
