package config

import "time"

// Settings holds the tunable knobs of the workflow core, resolved
// from a Config with sensible defaults. Nested sections:
//
//	llm:
//	  model: claude-sonnet
//	  call_timeout: 2m
//	retry:
//	  max_attempts: 3
//	  initial_delay: 1s
//	  backoff_factor: 2.0
//	  max_delay: 30s
//	breaker:
//	  failure_threshold: 5
//	  reset_timeout: 60s
//	checklist:
//	  min_required: 8
//	  complete_threshold: 0.8
//	  partial_threshold: 0.3
//	  fallback_threshold: 0.4
//	workflow:
//	  max_iterations: 25
//	  history_capacity: 20
//	  checkpoint_path: ""
type Settings struct {
	Model       string
	CallTimeout time.Duration

	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration

	FailureThreshold int
	ResetTimeout     time.Duration

	MinRequired       int
	CompleteThreshold float64
	PartialThreshold  float64
	FallbackThreshold float64

	MaxIterations   int
	HistoryCapacity int
	CheckpointPath  string
}

// DefaultSettings returns the settings used when no config is provided.
func DefaultSettings() Settings {
	return Settings{
		Model:       "claude-sonnet",
		CallTimeout: 2 * time.Minute,

		MaxAttempts:   3,
		InitialDelay:  time.Second,
		BackoffFactor: 2.0,
		MaxDelay:      30 * time.Second,

		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,

		MinRequired:       8,
		CompleteThreshold: 0.8,
		PartialThreshold:  0.3,
		FallbackThreshold: 0.4,

		MaxIterations:   25,
		HistoryCapacity: 20,
	}
}

// Resolve extracts Settings from a Config, falling back to defaults
// for anything the config does not set.
func Resolve(c Config) Settings {
	s := DefaultSettings()

	llm := c.Sub("llm")
	s.Model = llm.String("model", s.Model)
	s.CallTimeout = llm.Duration("call_timeout", s.CallTimeout)

	retry := c.Sub("retry")
	s.MaxAttempts = retry.Int("max_attempts", s.MaxAttempts)
	s.InitialDelay = retry.Duration("initial_delay", s.InitialDelay)
	s.BackoffFactor = retry.Float("backoff_factor", s.BackoffFactor)
	s.MaxDelay = retry.Duration("max_delay", s.MaxDelay)

	breaker := c.Sub("breaker")
	s.FailureThreshold = breaker.Int("failure_threshold", s.FailureThreshold)
	s.ResetTimeout = breaker.Duration("reset_timeout", s.ResetTimeout)

	checklist := c.Sub("checklist")
	s.MinRequired = checklist.Int("min_required", s.MinRequired)
	s.CompleteThreshold = checklist.Float("complete_threshold", s.CompleteThreshold)
	s.PartialThreshold = checklist.Float("partial_threshold", s.PartialThreshold)
	s.FallbackThreshold = checklist.Float("fallback_threshold", s.FallbackThreshold)

	workflow := c.Sub("workflow")
	s.MaxIterations = workflow.Int("max_iterations", s.MaxIterations)
	s.HistoryCapacity = workflow.Int("history_capacity", s.HistoryCapacity)
	s.CheckpointPath = workflow.String("checkpoint_path", s.CheckpointPath)

	return s
}
