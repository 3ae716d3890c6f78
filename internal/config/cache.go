package config

import "time"

// Cache configures the optional Redis read cache. An empty address disables it.
type Cache struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL           time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

func (c Cache) Enabled() bool {
	return c.RedisAddr != ""
}
