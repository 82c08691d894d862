package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JiaJunDeng5930/ChainContest-sub000/services"
)

var cursorCmd = &cobra.Command{
	Use:   "cursor",
	Short: "Inspect or build pagination cursors",
}

var cursorDecodeCmd = &cobra.Command{
	Use:   "decode <kind> <token>",
	Short: "Decode a pagination cursor",
	Long:  "Decode a pagination cursor of the given kind (contest, activity or creator)",
	Args:  cobra.ExactArgs(2),
	RunE:  runCursorDecode,
}

var cursorEncodeCmd = &cobra.Command{
	Use:   "encode <kind> <timestamp> <tie-breaker>",
	Short: "Build a pagination cursor",
	Long:  "Build a pagination cursor of the given kind from a RFC3339 timestamp and a tie breaker id",
	Args:  cobra.ExactArgs(3),
	RunE:  runCursorEncode,
}

func init() {
	cursorCmd.AddCommand(cursorDecodeCmd, cursorEncodeCmd)
	rootCmd.AddCommand(cursorCmd)
}

func runCursorDecode(cmd *cobra.Command, args []string) error {
	key, err := services.DecodeCursor(services.CursorKind(args[0]), args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "kind:        %v\n", key.Kind)
	fmt.Fprintf(cmd.OutOrStdout(), "sort key:    %v\n", key.SortKey.Format(time.RFC3339Nano))
	fmt.Fprintf(cmd.OutOrStdout(), "tie breaker: %v\n", key.TieBreaker)
	return nil
}

func runCursorEncode(cmd *cobra.Command, args []string) error {
	sortKey, err := time.Parse(time.RFC3339Nano, args[1])
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", args[1], err)
	}

	token, err := services.EncodeCursor(services.CursorKind(args[0]), sortKey, args[2])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
