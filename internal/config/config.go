package config

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/toml"
	"github.com/davecgh/go-spew/spew"
	"github.com/redis/go-redis/v9"
)

// ConfigStruct is the glue for all configuration sections
type ConfigStruct struct {
	Common   Common   `toml:"common"`
	Database Database `toml:"database"`
	Cache    Cache    `toml:"cache"`
}

// Common is the data required for all tools and services
type Common struct {
	LogDir string `toml:"log_dir"`
	Debug  bool   `toml:"debug"`
}

// Database is the data required to establish a PostgreSQL connection
type Database struct {
	DBname  string `toml:"dbname"`
	Host    string `toml:"host"`
	SSLmode string `toml:"sslmode"`
	User    string `toml:"user"`
}

// String returns a DSN with all information from the struct
func (d Database) String() string {
	return fmt.Sprintf("sslmode=%s host=%s user=%s dbname=%s", d.SSLmode, d.Host, d.User, d.DBname)
}

// Cache configures the optional Redis instance used for cross-process
// coordination (the rating run lock).
type Cache struct {
	Host     string `toml:"host"`
	Password string `toml:"password"`
	DB       int    `toml:"DB"`
}

func (c Cache) GenOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.Host,
		Password: c.Password,
		DB:       c.DB,
	}
}

// C represents the loaded config
var C ConfigStruct

func Load(path string) error {
	md, err := toml.DecodeFile(path, &C)
	if len(md.Undecoded()) > 0 {
		slog.Warn("Config file has undecoded keys", slog.String("keys", spew.Sdump(md.Undecoded())))
	}
	return err
}
