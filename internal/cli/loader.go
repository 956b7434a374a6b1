package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/crcsweep/internal/crc"
	"github.com/roach88/crcsweep/internal/sweep"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeLoadFailed = "E004" // Catalog or matrix load failed
	ErrCodeNotFound   = "E005" // Path not found

	// Catalog errors
	ErrCodeUnknownAlgorithm  = "E201" // Name absent from the catalog
	ErrCodeInvalidDefinition = "E202" // Entry cannot be resolved
	ErrCodeCheckFailed       = "E203" // Reference disagrees with a check value

	// Sweep errors
	ErrCodeSweepFailed = "E301" // One or more points did not pass
	ErrCodeStore       = "E401" // Report database error
)

// LoadError represents a failure to load an input file.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// loadCatalog returns the catalog at path, or the embedded one when path is
// empty.
func loadCatalog(path string) (crc.Catalog, error) {
	if path == "" {
		cat, err := crc.DefaultCatalog()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "embedded catalog", Err: err}
		}
		return cat, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog not found: %s", path)}
	}
	cat, err := crc.LoadCatalog(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("catalog %s", path), Err: err}
	}
	return cat, nil
}

// loadMatrix reads a matrix file, or returns the default regression matrix
// when path is empty.
func loadMatrix(path string) (*sweep.Matrix, error) {
	if path == "" {
		return sweep.DefaultMatrix(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("matrix not found: %s", path)}
	}
	m, err := sweep.LoadMatrix(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("matrix %s", path), Err: err}
	}
	return m, nil
}

// loadErrorCode extracts the code from a LoadError, defaulting to generic.
func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

// existingPath returns path if it exists. Opening a missing SQLite file
// would silently create an empty database.
func existingPath(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
