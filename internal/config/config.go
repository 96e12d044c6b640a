// Package config loads the service configuration from a yaml file, .env and
// the process environment, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes the environment variables read into the config,
// e.g. COMMENTBOX_DATABASE_DSN -> database.dsn.
const EnvPrefix = "COMMENTBOX_"

type AppConfig struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Session  SessionConfig  `koanf:"session"`
	Widget   WidgetConfig   `koanf:"widget"`
	CORS     CORSConfig     `koanf:"cors"`
}

type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	Mode         string        `koanf:"mode"`          // debug, release, test
	ReadTimeout  time.Duration `koanf:"read_timeout"`  // seconds
	WriteTimeout time.Duration `koanf:"write_timeout"` // seconds
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"` // postgres, sqlite
	DSN          string `koanf:"dsn"`
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	Username     string `koanf:"username"`
	Password     string `koanf:"password"`
	Database     string `koanf:"database"`
	SSLMode      bool   `koanf:"sslmode"`
	LogLevel     string `koanf:"log_level"` // silent, error, warn, info
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	MaxLifetime  int    `koanf:"max_lifetime"` // seconds
}

type RedisConfig struct {
	URL      string        `koanf:"url"` // empty: in-process cache
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

type SessionConfig struct {
	Name   string `koanf:"name"`
	Secret string `koanf:"secret"`
	MaxAge int    `koanf:"max_age"` // seconds
	Secure bool   `koanf:"secure"`
}

type WidgetConfig struct {
	AvatarMin       int `koanf:"avatar_min"`
	AvatarMax       int `koanf:"avatar_max"`
	DefaultAvatar   int `koanf:"default_avatar"`
	DefaultComments int `koanf:"default_comments"`
}

type CORSConfig struct {
	AllowOrigins []string `koanf:"allow_origins"`
}

// ConnString builds a connection string when none was configured explicitly.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == "sqlite" {
		return "file:commentbox.db?_pragma=foreign_keys(1)"
	}
	sslmode := "disable"
	if d.SSLMode {
		sslmode = "require"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, sslmode)
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns the configuration used when nothing else is provided.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8080,
			Mode:         "release",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         5432,
			Username:     "postgres",
			Password:     "postgres",
			Database:     "commentbox",
			LogLevel:     "warn",
			MaxOpenConns: 20,
			MaxIdleConns: 10,
			MaxLifetime:  1800,
		},
		Redis: RedisConfig{CacheTTL: 5 * time.Minute},
		Session: SessionConfig{
			Name:   "commentbox_session",
			Secret: "secret_key_change_me",
			MaxAge: 14 * 24 * 3600,
		},
		Widget: WidgetConfig{
			AvatarMin:       1,
			AvatarMax:       28,
			DefaultAvatar:   6,
			DefaultComments: 10,
		},
	}
}

// Load reads configPath (optional), .env and the environment.
func Load(configPath string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading config from file and environment")
	}

	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load config file: %w", err)
			}
			log.Printf("Config file %s not found, using defaults", configPath)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	conf := Default()
	if err := k.Unmarshal("", conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// yaml gives plain integers for timeouts
	if conf.Server.ReadTimeout < time.Second {
		conf.Server.ReadTimeout *= time.Second
	}
	if conf.Server.WriteTimeout < time.Second {
		conf.Server.WriteTimeout *= time.Second
	}
	if conf.Redis.CacheTTL < time.Second {
		conf.Redis.CacheTTL *= time.Second
	}
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil && port > 0 {
		conf.Server.Port = port
	}
	return conf, nil
}

// MustLoad is Load that exits on error.
func MustLoad(configPath string) *AppConfig {
	conf, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return conf
}
