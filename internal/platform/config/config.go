package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. All values come from the
// environment so main stays lean and deployments stay twelve-factor.
type Server struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	KafkaSeeds    []string
	KafkaTopic    string
	JWTSigningKey string
	// SchedulerKeyHash is the bcrypt hash of the API key the deadline-sweep
	// scheduler presents. Empty disables the scheduler endpoints.
	SchedulerKeyHash string
	// RebuttalWindow is the default rebuttal deadline offset applied when a
	// notification payload omits an explicit deadline. Deadline enforcement
	// itself is driven by the external sweep, never by an internal timer.
	RebuttalWindow time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("DISCIPLINA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	window := 14 * 24 * time.Hour
	if raw := os.Getenv("REBUTTAL_WINDOW_DAYS"); raw != "" {
		if days, err := strconv.Atoi(raw); err == nil && days > 0 {
			window = time.Duration(days) * 24 * time.Hour
		}
	}

	var seeds []string
	if raw := os.Getenv("KAFKA_SEEDS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				seeds = append(seeds, s)
			}
		}
	}
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "disciplina.case-transitions"
	}

	return Server{
		Addr:             addr,
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaSeeds:       seeds,
		KafkaTopic:       topic,
		JWTSigningKey:    jwtSigningKey,
		SchedulerKeyHash: os.Getenv("SCHEDULER_KEY_HASH"),
		RebuttalWindow:   window,
	}
}
