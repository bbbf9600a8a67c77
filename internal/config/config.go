// Package config loads daybook settings from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Adapter names.
const (
	AdapterMemory   = "memory"
	AdapterFS       = "fs"
	AdapterDrive    = "drive"
	AdapterDynamoDB = "dynamodb"
	AdapterPostgres = "postgres"
)

// Lock names.
const (
	LockNone     = "none"
	LockLocal    = "local"
	LockRedis    = "redis"
	LockDynamoDB = "dynamodb"
)

// tablePrefixPattern keeps the prefix safe to splice into SQL identifiers.
var tablePrefixPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Config holds every setting read at startup.
type Config struct {
	Adapter   string        `yaml:"adapter"`
	Users     []string      `yaml:"users"`
	Format    string        `yaml:"format"`
	Lock      string        `yaml:"lock"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
	Reconcile bool          `yaml:"reconcile"`
	Breaker   bool          `yaml:"breaker"`
	Metrics   bool          `yaml:"metrics"`

	FS       FSConfig       `yaml:"fs"`
	Drive    DriveConfig    `yaml:"drive"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

type FSConfig struct {
	Path      string `yaml:"path"`
	DevSafety bool   `yaml:"dev_safety"`
}

type DriveConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
	RootFolder   string `yaml:"root_folder"`
}

type DynamoDBConfig struct {
	Table  string `yaml:"table"`
	Region string `yaml:"region"`
}

type PostgresConfig struct {
	URL         string `yaml:"url"`
	TablePrefix string `yaml:"table_prefix"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Adapter: AdapterFS,
		Users:   []string{"kgiri", "rgiri"},
		Format:  "json",
		Lock:    LockNone,
		LockTTL: 30 * time.Second,
		FS: FSConfig{
			Path:      "daybook-data",
			DevSafety: true,
		},
		DynamoDB: DynamoDBConfig{Table: "daybook"},
		Postgres: PostgresConfig{TablePrefix: "daybook_"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
	}
}

// Load reads .env (if present), DAYBOOK_* variables and the YAML file named
// by DAYBOOK_CONFIG, in that order, and validates the result.
// Without DAYBOOK_CONFIG, a daybook.yaml found from the working directory
// upward is used.
func Load() (Config, error) {
	// Missing .env is normal outside development.
	_ = godotenv.Load()

	lookup := os.LookupEnv
	if _, ok := lookup("DAYBOOK_CONFIG"); !ok {
		if wd, err := os.Getwd(); err == nil {
			if path, err := FindFile(wd); err == nil {
				lookup = func(key string) (string, bool) {
					if key == "DAYBOOK_CONFIG" {
						return path, true
					}
					return os.LookupEnv(key)
				}
			}
		}
	}
	return FromLookup(lookup)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if path, ok := lookup("DAYBOOK_CONFIG"); ok && path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("DAYBOOK_ADAPTER", &c.Adapter)
	str("DAYBOOK_FORMAT", &c.Format)
	str("DAYBOOK_LOCK", &c.Lock)
	if v, ok := lookup("DAYBOOK_USERS"); ok {
		c.Users = splitList(v)
	}
	if v, ok := lookup("DAYBOOK_LOCK_TTL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("DAYBOOK_LOCK_TTL: %w", err))
		} else {
			c.LockTTL = d
		}
	}
	boolean("DAYBOOK_RECONCILE", &c.Reconcile)
	boolean("DAYBOOK_BREAKER", &c.Breaker)
	boolean("DAYBOOK_METRICS", &c.Metrics)

	str("DAYBOOK_FS_PATH", &c.FS.Path)
	boolean("DAYBOOK_DEV_SAFETY", &c.FS.DevSafety)

	str("DAYBOOK_DRIVE_CLIENT_ID", &c.Drive.ClientID)
	str("DAYBOOK_DRIVE_CLIENT_SECRET", &c.Drive.ClientSecret)
	str("DAYBOOK_DRIVE_ACCESS_TOKEN", &c.Drive.AccessToken)
	str("DAYBOOK_DRIVE_REFRESH_TOKEN", &c.Drive.RefreshToken)
	str("DAYBOOK_DRIVE_ROOT_FOLDER", &c.Drive.RootFolder)

	str("DAYBOOK_DYNAMODB_TABLE", &c.DynamoDB.Table)
	str("AWS_REGION", &c.DynamoDB.Region)

	str("DAYBOOK_DATABASE_URL", &c.Postgres.URL)
	str("DAYBOOK_TABLE_PREFIX", &c.Postgres.TablePrefix)

	str("DAYBOOK_REDIS_ADDR", &c.Redis.Addr)
	str("DAYBOOK_REDIS_PASSWORD", &c.Redis.Password)

	return errors.Join(errs...)
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the settings required by the selected adapter and lock.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Adapter, validation.Required,
			validation.In(AdapterMemory, AdapterFS, AdapterDrive, AdapterDynamoDB, AdapterPostgres)),
		validation.Field(&c.Format, validation.Required, validation.In("json", "yaml", "yml")),
		validation.Field(&c.Lock, validation.In(LockNone, LockLocal, LockRedis, LockDynamoDB)),
		validation.Field(&c.LockTTL, validation.Min(time.Second)),
	)
	if err != nil {
		return err
	}

	switch c.Adapter {
	case AdapterFS:
		err = validation.ValidateStruct(&c.FS,
			validation.Field(&c.FS.Path, validation.Required),
		)
	case AdapterDrive:
		err = validation.ValidateStruct(&c.Drive,
			validation.Field(&c.Drive.ClientID, validation.Required),
			validation.Field(&c.Drive.ClientSecret, validation.Required),
			validation.Field(&c.Drive.RefreshToken, validation.Required),
		)
	case AdapterDynamoDB:
		err = validation.ValidateStruct(&c.DynamoDB,
			validation.Field(&c.DynamoDB.Table, validation.Required),
		)
	case AdapterPostgres:
		err = validation.ValidateStruct(&c.Postgres,
			validation.Field(&c.Postgres.URL, validation.Required),
			validation.Field(&c.Postgres.TablePrefix, validation.Match(tablePrefixPattern)),
		)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", c.Adapter, err)
	}

	switch c.Lock {
	case LockRedis:
		err = validation.Validate(c.Redis.Addr, validation.Required.Error("redis address is required"))
	case LockDynamoDB:
		err = validation.Validate(c.DynamoDB.Table, validation.Required.Error("dynamodb table is required"))
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", c.Lock, err)
	}
	return nil
}
