package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/raushankrgupta/fitly-tryon/clientstate"
	"github.com/raushankrgupta/fitly-tryon/config"
	"github.com/raushankrgupta/fitly-tryon/events"
	"github.com/raushankrgupta/fitly-tryon/storage"
	"github.com/raushankrgupta/fitly-tryon/store"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

// openStore connects the configured database backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch config.StoreBackend {
	case "mongo":
		s, err := store.ConnectMongo(ctx, config.MongoURI, config.DBName)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgresStore(ctx, config.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		utils.Log.Warn("using the in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", config.StoreBackend)
	}
}

// migrate prepares the schema for backends that need one.
func migrate(ctx context.Context, s store.Store) error {
	switch db := s.(type) {
	case *store.PostgresStore:
		return db.Migrate(ctx)
	case *store.MongoStore:
		return db.EnsureIndexes(ctx)
	}
	return nil
}

// openObjects builds the object store. The local backend also returns the
// handler serving its files.
func openObjects(ctx context.Context) (storage.ObjectStore, *storage.LocalStore, error) {
	switch config.StorageBackend {
	case "s3":
		s, err := storage.NewS3Store(ctx, config.AWSRegion, config.AWSBucketName, config.StoragePublicURL)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "minio":
		s, err := storage.NewMinIOStore(config.MinIOEndpoint, config.MinIOAccessKey, config.MinIOSecretKey,
			config.WardrobeBucket, config.StoragePublicURL, config.MinIOUseSSL)
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "local":
		s, err := storage.NewLocalStore(config.LocalStorageDir, config.WardrobeBucket, config.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_BACKEND %q", config.StorageBackend)
	}
}

// openClientState uses Redis when REDIS_ADDR is set.
func openClientState(ctx context.Context) (clientstate.Store, error) {
	if config.RedisAddr == "" {
		return clientstate.NewMemoryStore(), nil
	}
	r := clientstate.NewRedisStore(config.RedisAddr)
	if err := r.Ping(ctx); err != nil {
		r.Close()
		return nil, fmt.Errorf("connect redis %s: %w", config.RedisAddr, err)
	}
	utils.Log.Info("Connected to Redis", zap.String("addr", config.RedisAddr))
	return r, nil
}

// openEvents publishes to RabbitMQ when RABBITMQ_URL is set. A broker that
// is down degrades to no events rather than stopping the server.
func openEvents() (events.Publisher, func()) {
	if config.RabbitMQURL == "" {
		return events.NewNoop(), func() {}
	}
	p, err := events.NewRabbit(config.RabbitMQURL, config.EventsExchange)
	if err != nil {
		utils.Log.Warn("rabbitmq unavailable, events disabled", zap.Error(err))
		return events.NewNoop(), func() {}
	}
	return p, func() { p.Close() }
}
