package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JiaJunDeng5930/ChainContest-sub000/utils"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), utils.GetBuildVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
