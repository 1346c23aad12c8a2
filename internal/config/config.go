package config

import (
	"time"
)

type Config struct {
	BaseURL string
	Db      struct {
		Dsn         string
		Automigrate bool
	}
	Redis struct {
		Addr string
		Db   int
	}
	Notifications struct {
		Email string
		Topic string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	KafkaServers string
	Escrow       struct {
		HoldPeriod    time.Duration
		SweepInterval time.Duration
	}
	Security struct {
		CodeTTL time.Duration
	}
}
