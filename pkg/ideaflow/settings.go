package ideaflow

import (
	"fmt"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/checkpoint"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/config"
)

// RunOptionsFromSettings maps resolved file settings onto run options.
// When the settings name a checkpoint path, a SQLite store is opened
// there and wired in; the returned store is non-nil in that case and
// the caller owns closing it.
func RunOptionsFromSettings(s config.Settings) ([]RunOption, checkpoint.Store, error) {
	opts := []RunOption{WithMaxIterations(s.MaxIterations)}

	if s.CheckpointPath == "" {
		return opts, nil, nil
	}

	store, err := checkpoint.NewSQLiteStore(s.CheckpointPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	return append(opts, WithCheckpointStore(store)), store, nil
}
