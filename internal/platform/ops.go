package platform

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/aretw0/daybook/internal/config"
	"github.com/aretw0/daybook/pkg/adapters/drive"
	"github.com/aretw0/daybook/pkg/adapters/dynamodb"
	"github.com/aretw0/daybook/pkg/adapters/fs"
	"github.com/aretw0/daybook/pkg/adapters/memory"
	"github.com/aretw0/daybook/pkg/adapters/postgres"
	"github.com/aretw0/daybook/pkg/adapters/redislock"
	"github.com/aretw0/daybook/pkg/core"
)

// openStore builds the adapter named by cfg.Adapter.
func (rt *Runtime) openStore(ctx context.Context, cfg config.Config, o *options) (core.Store, error) {
	switch cfg.Adapter {
	case config.AdapterMemory:
		return memory.New(), nil
	case config.AdapterFS:
		return rt.openFS(ctx, cfg, o)
	case config.AdapterDrive:
		srv, err := drive.NewDriveService(ctx, drive.Credentials{
			ClientID:     cfg.Drive.ClientID,
			ClientSecret: cfg.Drive.ClientSecret,
			AccessToken:  cfg.Drive.AccessToken,
			RefreshToken: cfg.Drive.RefreshToken,
		})
		if err != nil {
			return nil, err
		}
		return drive.NewStore(srv, drive.WithRootFolder(cfg.Drive.RootFolder), drive.WithLogger(rt.logger)), nil
	case config.AdapterDynamoDB:
		client, err := rt.dynamoClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return dynamodb.NewStore(client, cfg.DynamoDB.Table, rt.logger), nil
	case config.AdapterPostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		rt.onClose(func() error {
			pool.Close()
			return nil
		})
		tables := postgres.NewTableNames(cfg.Postgres.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			return nil, err
		}
		return postgres.NewStore(pool, tables, rt.logger), nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", cfg.Adapter)
	}
}

// openFS resolves the data path (sandboxed during dev runs) and creates it.
func (rt *Runtime) openFS(ctx context.Context, cfg config.Config, o *options) (core.Store, error) {
	sandbox := o.forceTemp || (cfg.FS.DevSafety && IsDevRun())
	path := ResolveDataPath(cfg.FS.Path, sandbox)
	if sandbox && path != cfg.FS.Path {
		rt.logger.Warn("running in SAFE MODE (dev sandbox)", "original_path", cfg.FS.Path, "resolved_path", path)
	}

	store := fs.NewStore(fs.Config{
		Path:         path,
		Logger:       rt.logger,
		ErrorHandler: o.errorHandler,
	})
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// openLocker builds the locker named by cfg.Lock. It returns nil for "none"
// or an empty setting.
func (rt *Runtime) openLocker(ctx context.Context, cfg config.Config) (core.Locker, error) {
	switch cfg.Lock {
	case "", config.LockNone:
		return nil, nil
	case config.LockLocal:
		return core.NewKeyedMutex(), nil
	case config.LockRedis:
		client, err := redislock.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return nil, err
		}
		rt.onClose(client.Close)
		return redislock.New(client, redislock.WithTTL(cfg.LockTTL), redislock.WithLogger(rt.logger)), nil
	case config.LockDynamoDB:
		client, err := rt.dynamoClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return dynamodb.NewLock(client, cfg.DynamoDB.Table, cfg.LockTTL, rt.logger), nil
	default:
		return nil, fmt.Errorf("unknown lock: %s", cfg.Lock)
	}
}

// dynamoClient is shared by the DynamoDB store and lock.
func (rt *Runtime) dynamoClient(ctx context.Context, cfg config.Config) (*awsdynamodb.Client, error) {
	if rt.dynamo != nil {
		return rt.dynamo, nil
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.DynamoDB.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.DynamoDB.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	rt.dynamo = awsdynamodb.NewFromConfig(awsCfg)
	return rt.dynamo, nil
}
