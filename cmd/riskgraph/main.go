// Package main provides the riskgraph CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// Exit codes
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitConfigError = 2
	ExitCycleFailed = 3
)

func main() {
	// Optional .env with RISKGRAPH_DATABASE_URL, AWS_* and LOG_LEVEL
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "riskgraph: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	graphPath   string
	s3Bucket    string
	s3Key       string
	s3Region    string
	databaseURL string
	sqlitePath  string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "riskgraph",
		Short: "Structural risk labelling for identity graphs",
		Long: `riskgraph scores every node of an identity graph by degree, closeness
and articulation, fuses the scores into a risk tier and keeps the
classification labels in the label store in step with the graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML configuration file (defaults apply when empty)")
	pf.StringVar(&g.graphPath, "graph", "", "Graph snapshot file (.json, .yaml, .snappy)")
	pf.StringVar(&g.s3Bucket, "s3-bucket", "", "Read the graph snapshot from this S3 bucket")
	pf.StringVar(&g.s3Key, "s3-key", "", "Object key of the graph snapshot in --s3-bucket")
	pf.StringVar(&g.s3Region, "s3-region", "", "AWS region for --s3-bucket")
	pf.StringVar(&g.databaseURL, "pg-url", os.Getenv("RISKGRAPH_DATABASE_URL"), "PostgreSQL label store URL")
	pf.StringVar(&g.sqlitePath, "sqlite", "", "SQLite label store file (used when --pg-url is empty)")
	pf.StringVar(&g.logLevel, "log-level", "", "Override logging.level")

	root.AddCommand(newRunCmd(g), newOnceCmd(g), newAnalyzeCmd(g))
	return root
}
