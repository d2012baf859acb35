package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/redis/go-redis/v9"

	"github.com/oaiiae/contacts-api/datastores"
)

type StoreOptions struct {
	Backend          string `doc:"store backend: dynamodb, redis or memory" default:"dynamodb"`
	Table            string `doc:"DynamoDB table name"                       default:"ContactsTable"`
	Region           string `doc:"AWS region, falls back to $AWS_REGION"`
	DynamoDBEndpoint string `doc:"DynamoDB endpoint override, e.g. DynamoDB Local"`
	RedisAddr        string `doc:"Redis address"                             default:"localhost:6379"`
	RedisPassword    string `doc:"Redis password"`
	RedisDB          int    `doc:"Redis database number"`
	RedisPrefix      string `doc:"prefix of Redis keys"                      default:"contacts:"`
}

// NewStore connects the configured backend. The returned function releases
// the underlying client and must be called once the store is no longer used.
func NewStore(
	ctx context.Context,
	options *StoreOptions,
	metriks *metrics.Set,
	logger *slog.Logger,
) (datastores.KV, func() error, error) {
	var (
		store   datastores.KV
		release = func() error { return nil }
	)

	backend := strings.ToLower(options.Backend)
	switch backend {
	case "dynamodb":
		var opts []func(*config.LoadOptions) error
		if options.Region != "" {
			opts = append(opts, config.WithRegion(options.Region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		store = datastores.NewKVDynamoDB(&cfg, options.Table, datastores.WithEndpoint(options.DynamoDBEndpoint))
		logger.Info("using dynamodb store", "table", options.Table, "region", cfg.Region)

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     options.RedisAddr,
			Password: options.RedisPassword,
			DB:       options.RedisDB,
		})
		store = datastores.NewKVRedis(rdb, datastores.WithRedisPrefix(options.RedisPrefix))
		release = rdb.Close
		logger.Info("using redis store", "addr", options.RedisAddr, "db", options.RedisDB)

	case "memory":
		store = datastores.NewKVInmem()
		logger.Warn("using memory store, contacts are lost on exit")

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", options.Backend)
	}

	return datastores.NewKVMetered(store, metriks, backend), release, nil
}
