package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration
type Config struct {
	Server       Server       `toml:"server" mapstructure:"server" json:"server"`
	Log          Log          `toml:"log" mapstructure:"log" json:"log"`
	Store        Store        `toml:"store" mapstructure:"store" json:"store"`
	Scheduler    Scheduler    `toml:"scheduler" mapstructure:"scheduler" json:"scheduler"`
	Notification Notification `toml:"notification" mapstructure:"notification" json:"notification"`
}

// Server holds the HTTP listener settings
type Server struct {
	Port        int      `toml:"port" mapstructure:"port" json:"port"`
	CorsOrigins []string `toml:"cors_origins" mapstructure:"cors_origins" json:"cors_origins"`
}

// Log holds logger level and optional file rotation
type Log struct {
	Level      string `toml:"level" mapstructure:"level" json:"level"`
	File       string `toml:"file" mapstructure:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days" json:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress" json:"compress"`
}

// Store selects and configures persistence
type Store struct {
	Driver    string   `toml:"driver" mapstructure:"driver" json:"driver"` // memory | mysql
	MySQL     MySQL    `toml:"mysql" mapstructure:"mysql" json:"mysql"`
	SeedUsers []string `toml:"seed_users" mapstructure:"seed_users" json:"seed_users"`
}

// MySQL is the relational store connection
type MySQL struct {
	User     string `toml:"user" mapstructure:"user" json:"user"`
	Password string `toml:"password" mapstructure:"password" json:"-"`
	Host     string `toml:"host" mapstructure:"host" json:"host"`
	Database string `toml:"database" mapstructure:"database" json:"database"`
	MaxOpen  int    `toml:"max_open" mapstructure:"max_open" json:"max_open"`
	MaxIdle  int    `toml:"max_idle" mapstructure:"max_idle" json:"max_idle"`
	LogLevel string `toml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// Scheduler sets the periodic job intervals
type Scheduler struct {
	CloseInterval      time.Duration `toml:"close_interval" mapstructure:"close_interval" json:"close_interval"`
	EndingSoonInterval time.Duration `toml:"ending_soon_interval" mapstructure:"ending_soon_interval" json:"ending_soon_interval"`
}

// Notification configures the ending-soon reminders
type Notification struct {
	EndingSoonMinutes []int `toml:"ending_soon_minutes" mapstructure:"ending_soon_minutes" json:"ending_soon_minutes"`
	ToleranceMinutes  int   `toml:"tolerance_minutes" mapstructure:"tolerance_minutes" json:"tolerance_minutes"`
}

// SetDefaults registers the built-in values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.mysql.host", "127.0.0.1:3306")
	v.SetDefault("store.mysql.max_open", 20)
	v.SetDefault("store.mysql.max_idle", 5)
	v.SetDefault("scheduler.close_interval", 60*time.Second)
	v.SetDefault("scheduler.ending_soon_interval", 60*time.Second)
	v.SetDefault("notification.ending_soon_minutes", []int{15, 5})
	v.SetDefault("notification.tolerance_minutes", 2)
}

// BindEnv makes AUCTION_SECTION_KEY override section.key
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("AUCTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the TOML file at path. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return Unmarshal(v)
}

// Unmarshal decodes an already populated viper instance
func Unmarshal(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
