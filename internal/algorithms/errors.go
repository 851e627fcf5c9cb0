package algorithms

import (
	"fmt"
	"strings"

	"github.com/wonny/breadthcore/internal/contracts"
)

// ValidationError rejects a record that cannot be scored. Reasons carries
// every failed check, not just the first.
type ValidationError struct {
	Reasons []string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("record validation failed: %s", strings.Join(e.Reasons, "; "))
}

// UnknownAlgorithmError is returned by the registry for an unregistered
// algorithm type.
type UnknownAlgorithmError struct {
	Algorithm contracts.AlgorithmType
}

func (e UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("unknown algorithm %q", e.Algorithm)
}
