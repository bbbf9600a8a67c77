package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/daybook/internal/config"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := config.FromLookup(env(nil))
	require.NoError(t, err)

	assert.Equal(t, config.AdapterFS, cfg.Adapter)
	assert.Equal(t, []string{"kgiri", "rgiri"}, cfg.Users)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, config.LockNone, cfg.Lock)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.True(t, cfg.FS.DevSafety)
}

func TestFromLookup_Environment(t *testing.T) {
	cfg, err := config.FromLookup(env(map[string]string{
		"DAYBOOK_ADAPTER":        "postgres",
		"DAYBOOK_USERS":          " alice, bob ,,",
		"DAYBOOK_FORMAT":         "yaml",
		"DAYBOOK_LOCK":           "redis",
		"DAYBOOK_LOCK_TTL":       "5s",
		"DAYBOOK_RECONCILE":      "true",
		"DAYBOOK_BREAKER":        "1",
		"DAYBOOK_METRICS":        "true",
		"DAYBOOK_DATABASE_URL":   "postgres://localhost/daybook",
		"DAYBOOK_TABLE_PREFIX":   "test_",
		"DAYBOOK_REDIS_ADDR":     "redis:6379",
		"DAYBOOK_REDIS_PASSWORD": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, config.AdapterPostgres, cfg.Adapter)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Users)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, config.LockRedis, cfg.Lock)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.True(t, cfg.Reconcile)
	assert.True(t, cfg.Breaker)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, "test_", cfg.Postgres.TablePrefix)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
}

func TestFromLookup_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daybook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
adapter: dynamodb
users: [carol]
lock_ttl: 1m
dynamodb:
  table: notes
  region: eu-west-1
`), 0644))

	cfg, err := config.FromLookup(env(map[string]string{
		"DAYBOOK_CONFIG":  path,
		"DAYBOOK_ADAPTER": "memory",
		"DAYBOOK_FORMAT":  "yaml",
	}))
	require.NoError(t, err)

	assert.Equal(t, config.AdapterDynamoDB, cfg.Adapter, "file overrides environment")
	assert.Equal(t, "yaml", cfg.Format, "environment survives where the file is silent")
	assert.Equal(t, []string{"carol"}, cfg.Users)
	assert.Equal(t, time.Minute, cfg.LockTTL)
	assert.Equal(t, "notes", cfg.DynamoDB.Table)
	assert.Equal(t, "eu-west-1", cfg.DynamoDB.Region)
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"unknown adapter", map[string]string{"DAYBOOK_ADAPTER": "s3"}},
		{"unknown format", map[string]string{"DAYBOOK_FORMAT": "toml"}},
		{"unknown lock", map[string]string{"DAYBOOK_LOCK": "etcd"}},
		{"bad bool", map[string]string{"DAYBOOK_RECONCILE": "maybe"}},
		{"bad ttl", map[string]string{"DAYBOOK_LOCK_TTL": "soon"}},
		{"short ttl", map[string]string{"DAYBOOK_LOCK_TTL": "10ms"}},
		{"empty fs path", map[string]string{"DAYBOOK_FS_PATH": ""}},
		{"drive without credentials", map[string]string{"DAYBOOK_ADAPTER": "drive"}},
		{"postgres without url", map[string]string{"DAYBOOK_ADAPTER": "postgres"}},
		{"unsafe table prefix", map[string]string{
			"DAYBOOK_ADAPTER":      "postgres",
			"DAYBOOK_DATABASE_URL": "postgres://localhost/daybook",
			"DAYBOOK_TABLE_PREFIX": "x; drop table",
		}},
		{"redis lock without address", map[string]string{"DAYBOOK_LOCK": "redis", "DAYBOOK_REDIS_ADDR": ""}},
		{"missing file", map[string]string{"DAYBOOK_CONFIG": "/nonexistent/daybook.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.FromLookup(env(tt.vars))
			assert.Error(t, err)
		})
	}
}
