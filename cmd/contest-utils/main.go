package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "contest-utils",
	Short: "Contest query engine utilities",
	Long:  "Maintenance utilities for the contest query engine including schema migration, fixture import and cursor inspection",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
