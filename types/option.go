package types

import (
	"context"

	"github.com/mcuadros/go-defaults"
)

func NewExecutionOptions() *ExecutionOptions {
	opts := &ExecutionOptions{Ctx: context.Background()}
	defaults.SetDefaults(opts)
	return opts
}

type ExecutionOptions struct {
	Ctx context.Context
	/**
	 * default: 1
	 * 1 runs nodes one by one in the validated order. A larger value lets
	 * every node whose dependencies completed run on a worker pool of
	 * that size.
	 */
	Concurrency int `default:"1"`
	/**
	 * default: false, fail-fast.
	 * When true, a failure only skips the nodes that depend on the failed
	 * node, directly or transitively. Independent branches keep running.
	 */
	ContinueOnFailure bool `default:"false"`
	/**
	 * default: true
	 * save every run report and node trace record into the store.
	 */
	PersistReports bool `default:"true"`
	/**
	 * default: false, only set it to true when doing testing or developing.
	 */
	MemStore bool `default:"false"`

	// If both MemStore and PostgresConfig are set, PostgresConfig takes precedence
	PostgresConfig *PostgresConfig
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

type ExecutionOption func(*ExecutionOptions)

func WithContext(ctx context.Context) ExecutionOption {
	return func(opts *ExecutionOptions) {
		opts.Ctx = ctx
	}
}

func SetConcurrency(concurrency int) ExecutionOption {
	return func(opts *ExecutionOptions) {
		if concurrency < 1 {
			concurrency = 1
		}
		opts.Concurrency = concurrency
	}
}

func EnableContinueOnFailure() ExecutionOption {
	return func(opts *ExecutionOptions) {
		opts.ContinueOnFailure = true
	}
}

func DisablePersistReports() ExecutionOption {
	return func(opts *ExecutionOptions) {
		opts.PersistReports = false
	}
}

func EnableMemStore() ExecutionOption {
	return func(opts *ExecutionOptions) {
		opts.MemStore = true
	}
}

// WithPostgresConfig persists reports into PostgreSQL
func WithPostgresConfig(config *PostgresConfig) ExecutionOption {
	return func(opts *ExecutionOptions) {
		opts.PostgresConfig = config
	}
}
