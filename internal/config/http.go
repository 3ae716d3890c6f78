package config

type HTTP struct {
	Port    uint32 `env:"HTTP_PORT" envDefault:"3000"`
	Swagger bool   `env:"HTTP_SWAGGER" envDefault:"true"`

	// ValidateRequests checks API requests against the embedded OpenAPI document.
	ValidateRequests bool `env:"HTTP_VALIDATE_REQUESTS" envDefault:"true"`

	CorsAllowedOrigins []string `env:"HTTP_CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3030"`
	MaxBodyBytes       int64    `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`

	// RateLimit is the sustained requests per second; zero disables limiting.
	RateLimit float64 `env:"HTTP_RATE_LIMIT" envDefault:"0"`
	RateBurst int     `env:"HTTP_RATE_BURST" envDefault:"20"`
}
