// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tableload/tableload/cmd/flags"
	"github.com/tableload/tableload/pkg/batch"
	"github.com/tableload/tableload/pkg/batchlog"
	"github.com/tableload/tableload/pkg/record"
	"github.com/tableload/tableload/pkg/stream"
)

// batchFile is the on-disk shape read by the write-batch command: a single
// JSON document bundling the stream identity spec.md §3 otherwise expects
// the caller's stream buffer to already carry.
type batchFile struct {
	Stream        string          `json:"stream"`
	KeyProperties []string        `json:"key_properties"`
	Schema        json.RawMessage `json:"schema"`
	Records       []record.Message `json:"records"`
}

func writeBatchCmd() *cobra.Command {
	writeBatchCmd := &cobra.Command{
		Use:       "write-batch <file>",
		Short:     "Write a batch of records from a JSON batch file into its target tables",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"file"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWriteBatch(cmd, args[0])
		},
	}

	return writeBatchCmd
}

func runWriteBatch(cmd *cobra.Command, fileName string) error {
	ctx := cmd.Context()

	buf, err := readBatchFile(fileName)
	if err != nil {
		return err
	}

	database, err := NewDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	sp, _ := pterm.DefaultSpinner.WithText(fmt.Sprintf("Writing batch for stream %q...", buf.Stream())).Start()

	orch := batch.New(database, batchlog.New())
	if err := orch.WriteBatch(ctx, buf); err != nil {
		sp.Fail(fmt.Sprintf("Failed to write batch: %s", err))
		return err
	}

	sp.Success(fmt.Sprintf("Wrote batch for stream %q", buf.Stream()))
	return nil
}

func readBatchFile(fileName string) (*stream.MemoryBuffer, error) {
	raw, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	var bf batchFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return nil, fmt.Errorf("decoding batch file: %w", err)
	}

	return stream.NewMemoryBuffer(bf.Stream, bf.KeyProperties, bf.Schema, flags.UseUUIDPK(), bf.Records), nil
}
