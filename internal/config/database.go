package config

import (
	"net"

	"github.com/go-sql-driver/mysql"
)

type DatabaseConfig struct {
	Type  string      `mapstructure:"type"`
	DSN   string      `mapstructure:"dsn"`
	MySQL MySQLConfig `mapstructure:"mysql"`
}

type MySQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
}

func NewDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type: "sqlite",
		DSN:  "./digestcracker.db",
		MySQL: MySQLConfig{
			Host:   "localhost",
			Port:   "3306",
			User:   "root",
			DBName: "digest_cracker",
		},
	}
}

// GetDSN returns DSN when set. For mysql without an explicit DSN it is
// assembled from the mysql section.
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" || c.Type != "mysql" {
		return c.DSN
	}

	cfg := mysql.NewConfig()
	cfg.User = c.MySQL.User
	cfg.Passwd = c.MySQL.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.MySQL.Host, c.MySQL.Port)
	cfg.DBName = c.MySQL.DBName
	cfg.ParseTime = true
	return cfg.FormatDSN()
}
