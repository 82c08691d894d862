package config

import (
	_ "embed"
)

// default query engine config
//
//go:embed default.config.yml
var DefaultConfigYml string
