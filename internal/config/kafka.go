package config

import "time"

type Kafka struct {
	Addresses      []string      `env:"KAFKA_ADDRESSES" envSeparator:","`
	Group          string        `env:"KAFKA_GROUP" envDefault:"product-tracker"`
	ProducerLinger time.Duration `env:"KAFKA_PRODUCER_LINGER" envDefault:"5ms"`
}

// Enabled reports whether any broker address is configured.
func (k Kafka) Enabled() bool {
	return len(k.Addresses) > 0
}
