package storage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates that the requested key does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// Engine names accepted by configuration.
const (
	EngineFile     = "file"
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineRedis    = "redis"
	EngineMemory   = "memory"
)

// ValidateKey rejects empty keys and keys with empty path segments.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidInput)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: malformed key %q", ErrInvalidInput, key)
		}
	}
	return nil
}
