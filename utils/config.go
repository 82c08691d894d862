package utils

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/JiaJunDeng5930/ChainContest-sub000/config"
	"github.com/JiaJunDeng5930/ChainContest-sub000/types"
)

// hard ceiling for query.maxPageSize
const maxQueryPageSize = 100

// Config is the globally accessible configuration
var Config *types.Config

// ReadConfig will process a configuration
func ReadConfig(cfg *types.Config, path string) error {
	err := readConfigFile(cfg, path)
	if err != nil {
		return err
	}

	err = readConfigEnv(cfg)
	if err != nil {
		return errors.Wrap(err, "error processing config env")
	}

	if cfg.Query.DefaultPageSize <= 0 {
		cfg.Query.DefaultPageSize = 25
	}
	if cfg.Query.MaxPageSize <= 0 || cfg.Query.MaxPageSize > maxQueryPageSize {
		cfg.Query.MaxPageSize = maxQueryPageSize
	}
	if cfg.Query.DefaultPageSize > cfg.Query.MaxPageSize {
		cfg.Query.DefaultPageSize = cfg.Query.MaxPageSize
	}
	if cfg.Server.QueryTimeout == 0 {
		cfg.Server.QueryTimeout = 10 * time.Second
	}

	if len(cfg.Chains.SupportedChainIds) == 0 {
		return errors.New("missing supported chain ids (need at least 1 chain to serve contests)")
	}

	log.WithFields(log.Fields{
		"databaseEngine":  cfg.Database.Engine,
		"supportedChains": cfg.Chains.SupportedChainIds,
		"defaultPageSize": cfg.Query.DefaultPageSize,
		"maxPageSize":     cfg.Query.MaxPageSize,
	}).Infof("did init config")

	return nil
}

func readConfigFile(cfg *types.Config, path string) error {
	// the config file is decoded on top of the embedded defaults, so keys
	// missing from the file keep their default value
	err := yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg)
	if err != nil {
		return errors.Wrap(err, "error decoding default config")
	}
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "error opening config file %v", path)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return errors.Wrapf(err, "error decoding config file %v", path)
	}

	return nil
}

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}
