package config

import "time"

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Server struct {
	Addr           string        `yaml:"addr" env:"ADDR" env-required:"true"`
	Name           string        `yaml:"name" env:"NAME" env-default:"siwb-provider"`
	Deadline       time.Duration `yaml:"deadline" env:"DEADLINE" env-default:"30s"`
	KeepAlive      time.Duration `yaml:"keep_alive" env:"SERVER_KEEP_ALIVE" env-default:"15s"`
	MaxMessageSize int           `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE" env-default:"4096"`
	MetricsAddr    string        `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

type Auth struct {
	Strategy     string        `yaml:"strategy" env:"SIWB_STRATEGY" env-default:"recover"`
	ChallengeTTL time.Duration `yaml:"challenge_ttl" env:"SIWB_CHALLENGE_TTL" env-default:"5m"`
	EntropySize  int           `yaml:"entropy_size" env:"SIWB_ENTROPY_SIZE" env-default:"32"`
}

type Store struct {
	Backend       string `yaml:"backend" env:"STORE_BACKEND" env-default:"memory"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	KeyPrefix     string `yaml:"key_prefix" env:"STORE_KEY_PREFIX" env-default:"siwb:challenge:"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info" envconfig:"LOG_LEVEL" default:"info"`
	File  string `yaml:"file" env:"LOG_FILE" envconfig:"LOG_FILE"`
}
