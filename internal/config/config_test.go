package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, DriverMemory, cfg.StoreDriver)
	require.Equal(t, "chat_db", cfg.MongoDatabase)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 50051, cfg.HealthPort)
	require.Equal(t, 10, cfg.RateLimitRPM)
	require.Equal(t, ":8080", cfg.Addr())
	require.Equal(t, []string{"*"}, cfg.Origins())
	require.False(t, cfg.TLSEnabled())
	require.Greater(t, cfg.PongWait(), cfg.PingInterval)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=memory\nJWT_KEYS=k1:a,k2:b\nPORT=9000\nALLOWED_ORIGINS=http://a.test, http://b.test\n"), 0o600))
	// godotenv never overrides variables that are already set
	t.Setenv("PORT", "9100")
	// make sure the file's keys are unset before loading and cleaned up after
	for _, k := range []string{"STORE_DRIVER", "JWT_KEYS", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Port)
	require.Equal(t, "k1:a,k2:b", cfg.JWTKeys)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
}

func TestValidate(t *testing.T) {
	valid := Config{
		StoreDriver:   DriverMongo,
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "chat_db",
		JWTSecret:     "s",
		TokenTTL:      time.Hour,
		Port:          8080,
		HealthPort:    50051,
		RateLimitRPM:  10,
		PingInterval:  time.Second,
	}
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"unknown driver":       func(c *Config) { c.StoreDriver = "redis" },
		"mongo without uri":    func(c *Config) { c.MongoURI = "" },
		"no signing key":       func(c *Config) { c.JWTSecret = "" },
		"same ports":           func(c *Config) { c.HealthPort = c.Port },
		"cert without key":     func(c *Config) { c.TLSCert = "cert.pem" },
		"tls required but off": func(c *Config) { c.RequireTLS = true },
		"zero rate":            func(c *Config) { c.RateLimitRPM = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}

	withKeys := valid
	withKeys.JWTSecret = ""
	withKeys.JWTKeys = "k1:a"
	require.NoError(t, withKeys.Validate())
}
