package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "blog",
		Short: "Blog API server",
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		deleteUserCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
