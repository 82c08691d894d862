package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
	"github.com/JiaJunDeng5930/ChainContest-sub000/types"
	"github.com/JiaJunDeng5930/ChainContest-sub000/utils"
)

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Path to the config file, if empty string defaults will be used")
	cmd.Flags().BoolP("debug", "d", false, "Enable debug logging")
}

// initDatabase loads the config referenced by the command flags and opens
// the configured database.
func initDatabase(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg := &types.Config{}
	if err := utils.ReadConfig(cfg, configPath); err != nil {
		return err
	}
	utils.Config = cfg

	return db.InitDB(&cfg.Database)
}
