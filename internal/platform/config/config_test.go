package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"DISCIPLINA_ADDR", "POSTGRES_DSN", "REDIS_URL", "KAFKA_SEEDS",
		"KAFKA_TOPIC", "JWT_SIGNING_KEY", "SCHEDULER_KEY_HASH", "REBUTTAL_WINDOW_DAYS",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Empty(t, cfg.KafkaSeeds)
	assert.Equal(t, "disciplina.case-transitions", cfg.KafkaTopic)
	assert.NotEmpty(t, cfg.JWTSigningKey)
	assert.Equal(t, 14*24*time.Hour, cfg.RebuttalWindow)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DISCIPLINA_ADDR", ":9999")
	t.Setenv("KAFKA_SEEDS", "broker-1:9092, broker-2:9092 ,")
	t.Setenv("KAFKA_TOPIC", "hr.cases")
	t.Setenv("REBUTTAL_WINDOW_DAYS", "7")

	cfg := FromEnv()
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaSeeds)
	assert.Equal(t, "hr.cases", cfg.KafkaTopic)
	assert.Equal(t, 7*24*time.Hour, cfg.RebuttalWindow)
}

func TestFromEnvIgnoresBadWindow(t *testing.T) {
	t.Setenv("REBUTTAL_WINDOW_DAYS", "soon")
	assert.Equal(t, 14*24*time.Hour, FromEnv().RebuttalWindow)

	t.Setenv("REBUTTAL_WINDOW_DAYS", "-3")
	assert.Equal(t, 14*24*time.Hour, FromEnv().RebuttalWindow)
}
