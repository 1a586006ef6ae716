package cache

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Addr != "localhost:6379" {
		t.Errorf("Addr = %v, want %v", cfg.Addr, "localhost:6379")
	}
	if cfg.Password != "" {
		t.Errorf("Password = %v, want empty string", cfg.Password)
	}
	if cfg.DB != 0 {
		t.Errorf("DB = %v, want %v", cfg.DB, 0)
	}
	if cfg.PoolSize != 10 {
		t.Errorf("PoolSize = %v, want %v", cfg.PoolSize, 10)
	}
	if cfg.MinIdleConns != 2 {
		t.Errorf("MinIdleConns = %v, want %v", cfg.MinIdleConns, 2)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %v, want %v", cfg.MaxRetries, 3)
	}
	if cfg.ReadTimeout != 3*time.Second {
		t.Errorf("ReadTimeout = %v, want %v", cfg.ReadTimeout, 3*time.Second)
	}
	if cfg.WriteTimeout != 3*time.Second {
		t.Errorf("WriteTimeout = %v, want %v", cfg.WriteTimeout, 3*time.Second)
	}
}

func TestClient_PrefixedKey(t *testing.T) {
	tests := []struct {
		name      string
		keyPrefix string
		key       string
		want      string
	}{
		{"no prefix", "", "mykey", "mykey"},
		{"with prefix", "cache", "mykey", "cache:mykey"},
		{"empty key", "prefix", "", "prefix:"},
		{"complex prefix", "app:v1", "user:123", "app:v1:user:123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{keyPrefix: tt.keyPrefix}
			got := c.prefixedKey(tt.key)
			if got != tt.want {
				t.Errorf("prefixedKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestConnect_InvalidAddress(t *testing.T) {
	cfg := &Config{
		Addr:         "invalid:99999",
		Password:     "",
		DB:           0,
		PoolSize:     1,
		MinIdleConns: 0,
		MaxRetries:   0,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := Connect(ctx, cfg)
	if err == nil {
		t.Error("expected error when connecting to invalid address")
	}
}

func TestConnectURL_InvalidURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if _, err := ConnectURL(ctx, "not-a-redis-url"); err == nil {
		t.Error("expected error for malformed URL")
	}
}

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(&Client{}, "bedrock", 100, 60)

	if rl.keyPrefix != "bedrock" {
		t.Errorf("keyPrefix = %v, want bedrock", rl.keyPrefix)
	}
	if rl.limit != 100 {
		t.Errorf("limit = %v, want 100", rl.limit)
	}
	if rl.windowSecs != 60 {
		t.Errorf("windowSecs = %v, want 60", rl.windowSecs)
	}
}
