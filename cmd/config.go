package main

import "time"

type Config struct {
	BufferSize                int           `env:"BUFFER_SIZE,default=1024"`
	NumberOfWorkers           int           `env:"NUMBER_OF_WORKERS,default=4"`
	ModerationWords           string        `env:"MODERATION_WORDS"`
	ModerationCharReplacement rune          `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	HealthInterval            time.Duration `env:"HEALTH_INTERVAL,default=30s"`
	BadgerFilepath            string        `env:"BADGER_FILEPATH,required=true"`
	IndexFilepath             string        `env:"INDEX_FILEPATH,required=true"`
	LogLevel                  string        `env:"LOG_LEVEL,required=true"`
	Host                      string        `env:"HOST,default=localhost"`
	Port                      int           `env:"PORT,default=8080"`
	JWTSecret                 string        `env:"JWT_SECRET,required=true"`
	TokenTTL                  time.Duration `env:"TOKEN_TTL,default=24h"`
	RateLimitRPS              float64       `env:"RATE_LIMIT_RPS,default=20"`
	RateLimitBurst            int           `env:"RATE_LIMIT_BURST,default=40"`
}
