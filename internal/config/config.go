package config

import "time"

// BusConfig selects the broadcast bus backend.
type BusConfig struct {
	// Driver is "memory" or "nats".
	Driver  string `mapstructure:"driver" yaml:"driver"`
	NATSURL string `mapstructure:"nats_url" yaml:"nats_url"`
}

// PresenceConfig selects the presence registry backend.
type PresenceConfig struct {
	// Driver is "memory" or "redis".
	Driver   string `mapstructure:"driver" yaml:"driver"`
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	Bus      BusConfig      `mapstructure:"bus" yaml:"bus"`
	Presence PresenceConfig `mapstructure:"presence" yaml:"presence"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "deskchat.db",
		JWTSecret:         "",
		JWTIssuer:         "deskchat",
		JWTAudience:       "deskchat-clients",
		JWTTTL:            24 * time.Hour,
		Bus:               BusConfig{Driver: "memory"},
		Presence:          PresenceConfig{Driver: "memory"},
	}
}
