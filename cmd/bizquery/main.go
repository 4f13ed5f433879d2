package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsledger/bizcontext/cmd/bizquery/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "bizquery",
		Short: "Query tool for the business context engine",
		Long:  "CLI tool for running one-off context-aware queries against a business",
	}

	rootCmd.AddCommand(commands.NewQueryCmd())
	rootCmd.AddCommand(commands.NewContextCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
