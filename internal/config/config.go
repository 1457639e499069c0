package config

import (
	"os"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

const pathEnv = "EVROAM_CONFIG"

type Config struct {
	IsDebug  bool   `yaml:"is_debug" env:"EVROAM_DEBUG" env-default:"false"`
	LogLevel string `yaml:"log_level" env:"EVROAM_LOG_LEVEL" env-default:"info"`
	TimeZone string `yaml:"time_zone" env-default:"UTC"`
	Listen   struct {
		BindIP   string `yaml:"bind_ip" env:"EVROAM_BIND_IP" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env:"EVROAM_PORT" env-default:"5000"`
		TLS      bool   `yaml:"tls_enabled" env-default:"false"`
		CertFile string `yaml:"cert_file" env-default:""`
		KeyFile  string `yaml:"key_file" env-default:""`
	} `yaml:"listen"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env:"EVROAM_MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:""`
		Password string `yaml:"password" env:"EVROAM_MONGO_PASSWORD" env-default:""`
		Database string `yaml:"database" env-default:"evroam"`
	} `yaml:"mongo"`
	Redis struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Addr     string `yaml:"addr" env:"EVROAM_REDIS_ADDR" env-default:"127.0.0.1:6379"`
		Password string `yaml:"password" env:"EVROAM_REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env-default:"0"`
		Prefix   string `yaml:"prefix" env-default:"evroam"`
	} `yaml:"redis"`
	Telegram struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		ApiKey  string `yaml:"api_key" env:"EVROAM_TELEGRAM_KEY" env-default:""`
	} `yaml:"telegram"`
	Ocpi struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		Url     string `yaml:"url" env-default:""`
		Token   string `yaml:"token" env:"EVROAM_OCPI_TOKEN" env-default:""`
	} `yaml:"ocpi"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		BindIP  string `yaml:"bind_ip" env-default:"0.0.0.0"`
		Port    string `yaml:"port" env-default:"9100"`
	} `yaml:"metrics"`
	Dispatcher struct {
		HandlerTimeout  int `yaml:"handler_timeout_sec" env-default:"10"`
		ShutdownTimeout int `yaml:"shutdown_timeout_sec" env-default:"15"`
	} `yaml:"dispatcher"`
	Operators []Operator `yaml:"operators"`
}

// Operator is a seed entry registered at start when the database has no
// record of it.
type Operator struct {
	Id          string `yaml:"id"`
	Name        string `yaml:"name"`
	AdminStatus string `yaml:"admin_status"`
	Homepage    string `yaml:"homepage"`
	Email       string `yaml:"email"`
}

var instance *Config
var once sync.Once
var loadErr error

// GetConfig reads the configuration once. The file path defaults to config.yml
// and can be changed with EVROAM_CONFIG.
func GetConfig() (*Config, error) {
	once.Do(func() {
		path := os.Getenv(pathEnv)
		if path == "" {
			path = "config.yml"
		}
		instance, loadErr = Load(path)
	})
	return instance, loadErr
}

// Load reads a configuration file, applying environment overrides.
func Load(path string) (*Config, error) {
	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// Usage describes the configuration environment variables.
func Usage() string {
	desc, _ := cleanenv.GetDescription(&Config{}, nil)
	return desc
}
