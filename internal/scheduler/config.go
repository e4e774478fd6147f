// Package scheduler runs conversion jobs on a bounded worker pool.
package scheduler

import "time"

// Config defines the scheduler configuration.
type Config struct {
	// Workers is the maximum number of jobs converting at once.
	Workers int
	// DispatchInterval is how often the queue is checked when nothing wakes it.
	DispatchInterval time.Duration
	// StartsPerSecond paces pipeline starts. Zero means unlimited.
	StartsPerSecond int
	// CleanupAge is how long finished jobs and their archives are kept.
	CleanupAge time.Duration
	// CleanupInterval is how often the cleanup sweep runs. Zero disables it.
	CleanupInterval time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Workers:          3,
		DispatchInterval: time.Second,
		StartsPerSecond:  1,
		CleanupAge:       time.Hour,
		CleanupInterval:  time.Hour,
	}
}
