package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080",
		"DB_USER": "rbms", "DB_HOST": "127.0.0.1", "DB_PORT": "3306", "DB_NAME": "rbms",
		"JWT_SECRET": "s3cret", "ACCESS_TOKEN_TTL_MIN": "15", "REFRESH_TOKEN_TTL_DAYS": "7",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_EMAILS", " Ops@Example.com, ,root@example.com")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")

	c := Load()
	if c.DBLockWaitTimeout != 5 || !c.AutoMigrate || c.BcryptCost != 12 {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if c.AMQPURL != "amqp://u:p@mq:5672/" {
		t.Fatalf("AMQPURL = %q", c.AMQPURL)
	}
	if len(c.AdminEmails) != 2 || c.AdminEmails[0] != "ops@example.com" {
		t.Fatalf("AdminEmails = %v", c.AdminEmails)
	}
}

func TestLoadBookingConfigClamps(t *testing.T) {
	t.Setenv("BOOKING_TX_TIMEOUT", "-1s")
	t.Setenv("BOOKING_TX_RETRIES", "0")
	t.Setenv("PNR_MAX_ATTEMPTS", "nope")
	t.Setenv("MAX_PASSENGERS_PER_BOOKING", "0")

	c := LoadBookingConfig()
	if c.TxTimeout != 10*time.Second || c.TxRetries != 1 || c.PNRAttempts != 5 || c.MaxPassengers != 1 {
		t.Fatalf("unexpected %+v", c)
	}
}

func TestLoadRateLimitConfigKeepsBucketAlive(t *testing.T) {
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1m")
	t.Setenv("RATE_LIMIT_CAPACITY", "-3")

	c := LoadRateLimitConfig()
	if c.TTL != 5*time.Minute {
		t.Fatalf("TTL = %v, want 5m", c.TTL)
	}
	if c.Capacity != 1 || c.KeyStrategy != "user_route" {
		t.Fatalf("unexpected %+v", c)
	}
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || c.Methods["POST"] {
		t.Fatalf("Methods = %v", c.Methods)
	}
}

func TestEnvBool(t *testing.T) {
	tests := map[string]bool{"yes": true, "ON": true, "0": false, "off": false, "maybe": true}
	for v, want := range tests {
		t.Setenv("X_FLAG", v)
		if got := envBool("X_FLAG", true); got != want {
			t.Fatalf("envBool(%q) = %v", v, got)
		}
	}
}
