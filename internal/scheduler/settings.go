// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package scheduler

import "time"

const (
	DefaultBatchSize            = 5
	DefaultDelayBetweenCommands = time.Second
	DefaultDelayBetweenBatches  = 2 * time.Second
	DefaultTimeoutPerCommand    = 10 * time.Second
)

// Settings tune a run. Zero delays are honoured; a zero batch size or timeout
// falls back to the default.
type Settings struct {
	BatchSize            int           `json:"batchSize" mapstructure:"batch_size"`
	DelayBetweenCommands time.Duration `json:"delayBetweenCommands" mapstructure:"delay_between_commands"`
	DelayBetweenBatches  time.Duration `json:"delayBetweenBatches" mapstructure:"delay_between_batches"`
	TimeoutPerCommand    time.Duration `json:"timeoutPerCommand" mapstructure:"timeout_per_command"`
	SkipOnError          bool          `json:"skipOnError" mapstructure:"skip_on_error"`
	// MaxRetries and RetryDelay are forwarded to the gateway when it supports tuning.
	MaxRetries int           `json:"maxRetries,omitempty" mapstructure:"max_retries"`
	RetryDelay time.Duration `json:"retryDelay,omitempty" mapstructure:"retry_delay"`
}

// DefaultSettings returns the stock run settings.
func DefaultSettings() Settings {
	return Settings{
		BatchSize:            DefaultBatchSize,
		DelayBetweenCommands: DefaultDelayBetweenCommands,
		DelayBetweenBatches:  DefaultDelayBetweenBatches,
		TimeoutPerCommand:    DefaultTimeoutPerCommand,
		SkipOnError:          true,
		MaxRetries:           3,
		RetryDelay:           time.Second,
	}
}

func (s Settings) normalized() Settings {
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	if s.TimeoutPerCommand <= 0 {
		s.TimeoutPerCommand = DefaultTimeoutPerCommand
	}
	if s.DelayBetweenCommands < 0 {
		s.DelayBetweenCommands = 0
	}
	if s.DelayBetweenBatches < 0 {
		s.DelayBetweenBatches = 0
	}
	return s
}

// SettingsPatch is a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	BatchSize            *int
	DelayBetweenCommands *time.Duration
	DelayBetweenBatches  *time.Duration
	TimeoutPerCommand    *time.Duration
	SkipOnError          *bool
	MaxRetries           *int
	RetryDelay           *time.Duration
}

// Apply returns s with the patch applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.BatchSize != nil {
		s.BatchSize = *p.BatchSize
	}
	if p.DelayBetweenCommands != nil {
		s.DelayBetweenCommands = *p.DelayBetweenCommands
	}
	if p.DelayBetweenBatches != nil {
		s.DelayBetweenBatches = *p.DelayBetweenBatches
	}
	if p.TimeoutPerCommand != nil {
		s.TimeoutPerCommand = *p.TimeoutPerCommand
	}
	if p.SkipOnError != nil {
		s.SkipOnError = *p.SkipOnError
	}
	if p.MaxRetries != nil {
		s.MaxRetries = *p.MaxRetries
	}
	if p.RetryDelay != nil {
		s.RetryDelay = *p.RetryDelay
	}
	return s.normalized()
}

func (p SettingsPatch) touchesRetry() bool { return p.MaxRetries != nil || p.RetryDelay != nil }

// Diff builds the patch that turns from into to.
func Diff(from, to Settings) SettingsPatch {
	var p SettingsPatch
	if from.BatchSize != to.BatchSize {
		p.BatchSize = &to.BatchSize
	}
	if from.DelayBetweenCommands != to.DelayBetweenCommands {
		p.DelayBetweenCommands = &to.DelayBetweenCommands
	}
	if from.DelayBetweenBatches != to.DelayBetweenBatches {
		p.DelayBetweenBatches = &to.DelayBetweenBatches
	}
	if from.TimeoutPerCommand != to.TimeoutPerCommand {
		p.TimeoutPerCommand = &to.TimeoutPerCommand
	}
	if from.SkipOnError != to.SkipOnError {
		p.SkipOnError = &to.SkipOnError
	}
	if from.MaxRetries != to.MaxRetries {
		p.MaxRetries = &to.MaxRetries
	}
	if from.RetryDelay != to.RetryDelay {
		p.RetryDelay = &to.RetryDelay
	}
	return p
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p == SettingsPatch{}
}
