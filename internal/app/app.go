// Package app opens the backends selected by configuration. The server and
// huddlectl share it so both write through the same observed repositories.
package app

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"
	"github.com/vedran77/huddle/internal/changefeed"
	"github.com/vedran77/huddle/internal/config"
	"github.com/vedran77/huddle/internal/database"
	"github.com/vedran77/huddle/internal/repository"
	"github.com/vedran77/huddle/internal/repository/memory"
	"github.com/vedran77/huddle/internal/repository/mongodb"
	"github.com/vedran77/huddle/internal/repository/postgres"
)

// Stubbed in tests.
var (
	connectPostgres = database.Connect
	connectMongo    = database.ConnectMongo
	ensureIndexes   = mongodb.EnsureIndexes
	connectRedis    = database.ConnectRedis
)

// OpenStore connects the configured document store.
func OpenStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := connectPostgres(cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		glog.Infof("[app] connected to postgres %s/%s", cfg.Database.Host, cfg.Database.Name)
		return postgres.NewStore(pool), nil

	case "mongo":
		db, err := connectMongo(cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		if err := ensureIndexes(ctx, db); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, fmt.Errorf("ensuring mongo indexes: %w", err)
		}
		glog.Infof("[app] connected to mongo database %s", cfg.Mongo.Database)
		return mongodb.NewStore(db), nil

	case "memory":
		glog.Warningf("[app] using the in-memory store, data is lost on exit")
		return memory.NewStore(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// OpenFeed connects the configured change feed. The redis client is returned
// for reuse by the rate limiter and is nil for the local feed.
func OpenFeed(cfg *config.Config) (changefeed.Feed, *redis.Client, error) {
	switch cfg.Feed.Driver {
	case "redis":
		client, err := connectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		glog.Infof("[app] connected to redis %s", cfg.Redis.Addr)
		return changefeed.NewRedis(client), client, nil

	case "local":
		glog.Warningf("[app] using the in-process change feed, other processes will not see writes")
		return changefeed.NewLocal(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown feed driver %q", cfg.Feed.Driver)
	}
}

// Observe wraps the store's request and user repositories so every write is
// published on feed.
func Observe(store *repository.Store, feed changefeed.Feed) *repository.Store {
	observed := *store
	observed.Users = changefeed.ObserveUsers(store.Users, feed)
	observed.Requests = changefeed.ObserveRequests(store.Requests, feed)
	return &observed
}
