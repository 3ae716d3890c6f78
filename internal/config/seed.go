package config

type Seed struct {
	OnStart bool `env:"SEED_ON_START" envDefault:"true"`
	Count   int  `env:"SEED_COUNT" envDefault:"40"`
	// RandSeed makes generated data reproducible; zero picks a time based seed.
	RandSeed uint64 `env:"SEED_RAND_SEED" envDefault:"0"`
}
