package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Apply the embedded database schema",
	Long:  "Apply the embedded goose migrations to the configured database",
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	addConfigFlags(schemaCmd)

	schemaCmd.Flags().Int64("version", -2, "Target schema version (-2 = latest, -1 = next version only)")
}

func runSchema(cmd *cobra.Command, args []string) error {
	version, _ := cmd.Flags().GetInt64("version")

	if err := initDatabase(cmd); err != nil {
		return err
	}
	defer db.MustCloseDB()

	if err := db.ApplyEmbeddedDbSchema(version); err != nil {
		return err
	}

	logrus.WithField("version", version).Info("database schema applied")
	return nil
}
