package types

import "time"

// Config is a struct to hold the configuration data. Environment variables
// are named after the section and field, e.g. QUERY_MAX_PAGE_SIZE.
type Config struct {
	Logging struct {
		OutputLevel  string `yaml:"outputLevel" envconfig:"OUTPUT_LEVEL"`
		OutputStderr bool   `yaml:"outputStderr" envconfig:"OUTPUT_STDERR"`

		FilePath  string `yaml:"filePath" envconfig:"FILE_PATH"`
		FileLevel string `yaml:"fileLevel" envconfig:"FILE_LEVEL"`
	} `yaml:"logging" envconfig:"LOGGING"`

	Server struct {
		Port string `yaml:"port" envconfig:"PORT"`
		Host string `yaml:"host" envconfig:"HOST"`

		HttpReadTimeout  time.Duration `yaml:"httpReadTimeout" envconfig:"HTTP_READ_TIMEOUT"`
		HttpWriteTimeout time.Duration `yaml:"httpWriteTimeout" envconfig:"HTTP_WRITE_TIMEOUT"`
		HttpIdleTimeout  time.Duration `yaml:"httpIdleTimeout" envconfig:"HTTP_IDLE_TIMEOUT"`
		QueryTimeout     time.Duration `yaml:"queryTimeout" envconfig:"QUERY_TIMEOUT"`
	} `yaml:"server" envconfig:"SERVER"`

	Api struct {
		Enabled     bool     `yaml:"enabled" envconfig:"ENABLED"`
		CorsOrigins []string `yaml:"corsOrigins" envconfig:"CORS_ORIGINS"`

		DefaultRateLimit        uint     `yaml:"defaultRateLimit" envconfig:"DEFAULT_RATE_LIMIT"`
		DefaultRateLimitBurst   uint     `yaml:"defaultRateLimitBurst" envconfig:"DEFAULT_RATE_LIMIT_BURST"`
		DisableDefaultRateLimit bool     `yaml:"disableDefaultRateLimit" envconfig:"DISABLE_DEFAULT_RATE_LIMIT"`
		WhitelistedIPs          []string `yaml:"whitelistedIPs" envconfig:"WHITELISTED_IPS"`
		ProxyCount              uint     `yaml:"proxyCount" envconfig:"PROXY_COUNT"`
	} `yaml:"api" envconfig:"API"`

	Chains struct {
		SupportedChainIds []int64 `yaml:"supportedChainIds" envconfig:"SUPPORTED_CHAIN_IDS"`
	} `yaml:"chains" envconfig:"CHAINS"`

	Query struct {
		DefaultPageSize int `yaml:"defaultPageSize" envconfig:"DEFAULT_PAGE_SIZE"`
		MaxPageSize     int `yaml:"maxPageSize" envconfig:"MAX_PAGE_SIZE"`
	} `yaml:"query" envconfig:"QUERY"`

	LeaderboardCache struct {
		Enabled     bool          `yaml:"enabled" envconfig:"ENABLED"`
		LocalSizeMB int           `yaml:"localSizeMB" envconfig:"LOCAL_SIZE_MB"`
		RedisAddr   string        `yaml:"redisAddr" envconfig:"REDIS_ADDR"`
		RedisPrefix string        `yaml:"redisPrefix" envconfig:"REDIS_PREFIX"`
		Ttl         time.Duration `yaml:"ttl" envconfig:"TTL"`
	} `yaml:"leaderboardCache" envconfig:"LEADERBOARD_CACHE"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
		Public  bool   `yaml:"public" envconfig:"PUBLIC"`
		Host    string `yaml:"host" envconfig:"HOST"`
		Port    string `yaml:"port" envconfig:"PORT"`
	} `yaml:"metrics" envconfig:"METRICS"`

	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
}

type DatabaseConfig struct {
	Engine      string                     `yaml:"engine" envconfig:"ENGINE"`
	Sqlite      *SqliteDatabaseConfig      `yaml:"sqlite" envconfig:"SQLITE"`
	Pgsql       *PgsqlDatabaseConfig       `yaml:"pgsql" envconfig:"PGSQL"`
	PgsqlWriter *PgsqlWriterDatabaseConfig `yaml:"pgsqlWriter" envconfig:"PGSQL_WRITER"`
}

type SqliteDatabaseConfig struct {
	File         string `yaml:"file" envconfig:"FILE"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"MAX_IDLE_CONNS"`
}

type PgsqlDatabaseConfig struct {
	Username     string `yaml:"user" envconfig:"USERNAME"`
	Password     string `yaml:"password" envconfig:"PASSWORD"`
	Name         string `yaml:"name" envconfig:"NAME"`
	Host         string `yaml:"host" envconfig:"HOST"`
	Port         string `yaml:"port" envconfig:"PORT"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"MAX_IDLE_CONNS"`
}

type PgsqlWriterDatabaseConfig struct {
	Username     string `yaml:"user" envconfig:"USERNAME"`
	Password     string `yaml:"password" envconfig:"PASSWORD"`
	Name         string `yaml:"name" envconfig:"NAME"`
	Host         string `yaml:"host" envconfig:"HOST"`
	Port         string `yaml:"port" envconfig:"PORT"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"MAX_IDLE_CONNS"`
}
