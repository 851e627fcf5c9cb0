package calcconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/breadthcore/internal/contracts"
)

// Export serializes a config to YAML for interchange between installations.
// Version and timestamps are stripped: they are assigned by the importing
// store, so a round-trip preserves every other field.
func Export(cfg *contracts.CalculationConfig) ([]byte, error) {
	out := cfg.Clone()
	out.Version = ""
	out.CreatedAt = time.Time{}
	out.UpdatedAt = time.Time{}
	return yaml.Marshal(out)
}

// Import strict-decodes an exported config. Unknown fields fail immediately
// so typos never silently drop settings. The result is validated but not yet
// persisted; Create assigns its version.
func Import(data []byte) (*contracts.CalculationConfig, error) {
	var cfg contracts.CalculationConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.Version = ""
	cfg.CreatedAt = time.Time{}
	cfg.UpdatedAt = time.Time{}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Hash generates a SHA-256 over the canonical JSON encoding, for
// reproducibility audits. Identical settings always hash identically
// regardless of version or timestamps.
func Hash(cfg *contracts.CalculationConfig) (string, error) {
	canonical := cfg.Clone()
	canonical.Version = ""
	canonical.CreatedAt = time.Time{}
	canonical.UpdatedAt = time.Time{}

	jsonBytes, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
