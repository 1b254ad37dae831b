// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tableload/tableload/pkg/activate"
	"github.com/tableload/tableload/pkg/batchlog"
)

func activateVersionCmd() *cobra.Command {
	activateVersionCmd := &cobra.Command{
		Use:       "activate-version <stream> <version>",
		Short:     "Atomically activate a versioned table family over its live name",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"stream", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing version %q: %w", args[1], err)
			}
			return runActivateVersion(cmd, args[0], version)
		},
	}

	return activateVersionCmd
}

func runActivateVersion(cmd *cobra.Command, streamName string, version int64) error {
	ctx := cmd.Context()

	database, err := NewDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	sp, _ := pterm.DefaultSpinner.WithText(fmt.Sprintf("Activating version %d of stream %q...", version, streamName)).Start()

	act := activate.New(database, batchlog.New())
	if err := act.ActivateVersion(ctx, streamName, version); err != nil {
		sp.Fail(fmt.Sprintf("Failed to activate version: %s", err))
		return err
	}

	sp.Success(fmt.Sprintf("Activated version %d of stream %q", version, streamName))
	return nil
}
