package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsledger/bizcontext/internal/models"
)

// NewQueryCmd creates the query command
func NewQueryCmd() *cobra.Command {
	var (
		businessID string
		queryType  string
		overrides  map[string]string
		debugMode  bool
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Run a context-aware query against a business",
		Long:  "Assemble the business context, classify the question, and print the engine's full response as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(debugMode)
			if err != nil {
				return err
			}
			defer rt.Close()

			req := &models.AIContextRequest{
				BusinessID: businessID,
				QueryType:  models.QueryType(queryType),
				Query:      args[0],
				Context:    overrides,
			}

			resp, err := rt.engine.ProcessQuery(context.Background(), req)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&businessID, "business-id", "", "Business to query (required)")
	cmd.Flags().StringVar(&queryType, "query-type", string(models.QueryTypeCustomerInquiry), "Query type: customer_inquiry, business_analysis, or workflow_automation")
	cmd.Flags().StringToStringVar(&overrides, "context", nil, "Extra context as key=value pairs, repeatable")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging for LLM calls")
	if err := cmd.MarkFlagRequired("business-id"); err != nil {
		panic(err)
	}

	return cmd
}
