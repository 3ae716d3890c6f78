package config

import "time"

type Relay struct {
	BatchSize uint32        `env:"RELAY_BATCH_SIZE" envDefault:"100"`
	Interval  time.Duration `env:"RELAY_INTERVAL" envDefault:"1s"`

	// PurgeSchedule is a cron spec for deleting relayed outbox messages.
	PurgeSchedule  string        `env:"RELAY_PURGE_SCHEDULE" envDefault:"@every 1h"`
	PurgeRetention time.Duration `env:"RELAY_PURGE_RETENTION" envDefault:"168h"`
}
