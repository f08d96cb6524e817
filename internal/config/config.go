package config

import (
	"strings"
	"time"

	"digestCracker/internal/core/domain"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix       = "DIGESTCRACKER"
	DefaultFile     = "digestcracker"
	DefaultHTTPAddr = ":8080"
)

type Config struct {
	Search   SearchConfig   `mapstructure:"search"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type SearchConfig struct {
	Alphabet string `mapstructure:"alphabet"`
	Length   int    `mapstructure:"length"`
	Mode     string `mapstructure:"mode"`
	Workers  int    `mapstructure:"workers"`
	Policy   string `mapstructure:"policy"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type MetricsConfig struct {
	ReportPath     string        `mapstructure:"report_path"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
}

// SetDefaults registers every key so that environment overrides are seen
// by Unmarshal even when no config file sets them.
func SetDefaults(v *viper.Viper) {
	db := NewDatabaseConfig()

	v.SetDefault("search.alphabet", domain.CharsetLower)
	v.SetDefault("search.length", domain.DefaultPasswordLength)
	v.SetDefault("search.mode", string(domain.ModeSequential))
	v.SetDefault("search.workers", 0)
	v.SetDefault("search.policy", string(domain.PolicyRunToCompletion))
	v.SetDefault("log.level", "info")
	v.SetDefault("database.type", db.Type)
	v.SetDefault("database.dsn", db.DSN)
	v.SetDefault("database.mysql.host", db.MySQL.Host)
	v.SetDefault("database.mysql.port", db.MySQL.Port)
	v.SetDefault("database.mysql.user", db.MySQL.User)
	v.SetDefault("database.mysql.password", db.MySQL.Password)
	v.SetDefault("database.mysql.name", db.MySQL.DBName)
	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("metrics.report_path", "")
	v.SetDefault("metrics.sample_interval", time.Second)
}

// Load reads configuration into v from defaults, the optional file at path
// (or ./digestcracker.yaml when path is empty) and DIGESTCRACKER_* variables.
// A missing default file is not an error; a missing explicit file is.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(DefaultFile)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := domain.ParseSearchMode(c.Search.Mode); err != nil {
		return errors.Wrapf(err, "search.mode %q", c.Search.Mode)
	}
	if _, err := domain.ParseCompletionPolicy(c.Search.Policy); err != nil {
		return errors.Wrapf(err, "search.policy %q", c.Search.Policy)
	}
	if c.Search.Workers < 0 {
		return errors.Wrapf(domain.ErrInvalidWorkerCount, "search.workers %d", c.Search.Workers)
	}
	switch c.Database.Type {
	case "sqlite", "mysql", "none":
	default:
		return errors.Errorf("database.type %q: want sqlite, mysql or none", c.Database.Type)
	}
	return nil
}

// Settings turns the search section into run settings.
func (c *Config) Settings() domain.CrackingSettings {
	return domain.CrackingSettings{
		Mode:         domain.SearchMode(c.Search.Mode),
		Threads:      c.Search.Workers,
		Policy:       domain.CompletionPolicy(c.Search.Policy),
		CharacterSet: c.Search.Alphabet,
		Length:       c.Search.Length,
	}
}
