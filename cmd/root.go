// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tableload/tableload/cmd/flags"
	"github.com/tableload/tableload/internal/connstr"
	"github.com/tableload/tableload/pkg/db"
)

// Version is the tableload version.
var Version = "development"

func init() {
	viper.SetEnvPrefix("TABLELOAD")
	viper.AutomaticEnv()

	flags.PgConnectionFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:          "tableload",
	SilenceUsage: true,
	Version:      Version,
}

// NewDB opens a connection to the target database with its search_path set
// to the configured schema, and wraps it in the retryable db.DB used by
// every component.
func NewDB(ctx context.Context) (db.DB, error) {
	dsn, err := connstr.AppendSearchPathOption(flags.PostgresURL(), flags.Schema())
	if err != nil {
		return nil, fmt.Errorf("setting search_path on connection string: %w", err)
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &db.RDB{DB: conn}, nil
}

// Execute executes the root command.
func Execute() error {
	rootCmd.AddCommand(writeBatchCmd())
	rootCmd.AddCommand(activateVersionCmd())

	return rootCmd.Execute()
}
