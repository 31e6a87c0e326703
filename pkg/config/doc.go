// Package config loads env-tagged configuration structs.
//
// Load reads a .env file once per process (missing files are fine) and then
// parses environment variables into the given struct via caarlos0/env tags:
//
//	type Config struct {
//	    TokenSecret string        `env:"GATEKIT_TOKEN_SECRET,required"`
//	    TokenTTL    time.Duration `env:"GATEKIT_TOKEN_TTL" envDefault:"1h"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
