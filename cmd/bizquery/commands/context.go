package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewContextCmd creates the context command
func NewContextCmd() *cobra.Command {
	var debugMode bool

	cmd := &cobra.Command{
		Use:   "context <business-id>",
		Short: "Print the assembled context snapshot for a business",
		Long:  "Assemble and print the full business context snapshot without invoking the LLM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(debugMode)
			if err != nil {
				return err
			}
			defer rt.Close()

			bctx, err := rt.assembler.Assemble(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to assemble context: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(bctx)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}
