package dagflow

import (
	"github.com/juju/errors"
	"github.com/warriorguo/dagflow/runtime"
	"github.com/warriorguo/dagflow/store"
	"github.com/warriorguo/dagflow/store/mem"
	"github.com/warriorguo/dagflow/store/postgres"
	"github.com/warriorguo/dagflow/types"
)

// NewRegistry returns an empty node registry.
func NewRegistry() types.Registry {
	return runtime.NewRegistry()
}

// NewExecutor creates an executor for the registry with the given options
func NewExecutor(registry types.Registry, opts ...types.ExecutionOption) (types.Executor, error) {
	if registry == nil {
		return nil, errors.BadRequestf("registry is nil")
	}

	options := types.NewExecutionOptions()
	for _, opt := range opts {
		opt(options)
	}

	var s store.Store
	var err error

	// PostgresConfig takes precedence over MemStore
	if options.PostgresConfig != nil {
		pgConfig := &postgres.Config{
			Host:     options.PostgresConfig.Host,
			Port:     options.PostgresConfig.Port,
			User:     options.PostgresConfig.User,
			Password: options.PostgresConfig.Password,
			Database: options.PostgresConfig.Database,
			SSLMode:  options.PostgresConfig.SSLMode,
		}

		s, err = postgres.NewPostgresStore(options.Ctx, pgConfig)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}
	} else if options.PersistReports || options.MemStore {
		s = mem.NewMemStore()
	}

	return runtime.NewExecutor(registry, s, options), nil
}
