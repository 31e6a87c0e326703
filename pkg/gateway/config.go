package gateway

import "time"

// Config holds gateway settings, loaded from environment variables.
type Config struct {
	// TokenSecret signs and verifies credential tokens.
	TokenSecret string `env:"GATEKIT_TOKEN_SECRET,required"`
	// TokenTTL bounds the validity of issued credentials.
	TokenTTL time.Duration `env:"GATEKIT_TOKEN_TTL" envDefault:"1h"`
}
