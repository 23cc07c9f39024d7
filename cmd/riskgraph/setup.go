package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-riskgraph/pkg/config"
	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
	"github.com/dd0wney/cluso-riskgraph/pkg/labels"
	"github.com/dd0wney/cluso-riskgraph/pkg/logging"
	"github.com/dd0wney/cluso-riskgraph/pkg/maintenance"
)

// configError marks failures that should exit with ExitConfigError.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

// cycleError marks a maintenance cycle that finished without success.
type cycleError struct{ status maintenance.Status }

func (e cycleError) Error() string { return fmt.Sprintf("maintenance cycle finished with %s", e.status) }

func exitCode(err error) int {
	var ce configError
	var cy cycleError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ce):
		return ExitConfigError
	case errors.As(err, &cy):
		return ExitCycleFailed
	default:
		return ExitError
	}
}

func (g *globalFlags) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return config.Config{}, configError{err}
		}
	}

	switch {
	case g.logLevel != "":
		cfg.Logging.Level = g.logLevel
	case os.Getenv("LOG_LEVEL") != "":
		cfg.Logging.Level = os.Getenv("LOG_LEVEL")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, configError{err}
	}
	return cfg, nil
}

func newLogger(cfg config.Config) logging.Logger {
	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.Logging.Level))
	logging.SetDefaultLogger(logger)
	return logger
}

func (g *globalFlags) snapshotProvider(ctx context.Context) (maintenance.SnapshotProvider, error) {
	switch {
	case g.s3Bucket != "":
		if g.s3Key == "" {
			return nil, configError{errors.New("--s3-key is required with --s3-bucket")}
		}
		p, err := graph.NewS3Provider(ctx, g.s3Bucket, g.s3Key, g.s3Region)
		if err != nil {
			return nil, err
		}
		return p, nil
	case g.graphPath != "":
		return graph.FileProvider{Path: g.graphPath}, nil
	default:
		return nil, configError{errors.New("one of --graph or --s3-bucket is required")}
	}
}

// labelStore picks PostgreSQL, then SQLite, then an in-memory store.
func (g *globalFlags) labelStore(ctx context.Context) (labels.Store, func(), error) {
	switch {
	case g.databaseURL != "":
		s, err := labels.NewPGStore(ctx, g.databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case g.sqlitePath != "":
		s, err := labels.OpenSQLiteStore(ctx, g.sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return labels.NewMemoryStore(), func() {}, nil
	}
}
