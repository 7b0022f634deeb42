package migration

import (
	"fmt"
	"os"

	"github.com/oarkflow/bcl"
)

// RunFile is the top-level shape of a migration-run configuration file,
// mirroring the teacher's BCL-unmarshal-into-a-tagged-struct idiom: a
// single named block holding one run's Configuration.
type RunFile struct {
	Run []Configuration `json:"Run"`
}

// LoadConfig reads a BCL-encoded migration-run configuration file and
// applies the default values spec.md §3 names for any zero-valued numeric
// field.
func LoadConfig(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration config file: %w", err)
	}
	var rf RunFile
	if _, err := bcl.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal migration config file: %w", err)
	}
	if len(rf.Run) == 0 {
		return nil, fmt.Errorf("no Run block found in %s", path)
	}
	cfg := rf.Run[0]
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills in the documented defaults for unset numeric fields.
// It never mutates a field the caller explicitly set to a non-zero value.
func applyDefaults(cfg *Configuration) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxProcesses == 0 {
		cfg.MaxProcesses = DefaultMaxProcesses
	}
}
