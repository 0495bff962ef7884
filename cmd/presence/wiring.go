package main

import (
	"chatroom/cache"
	"chatroom/contract"
	"chatroom/domain"
	"chatroom/internal"
	"chatroom/repositories"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
)

const debugEndpoint = "/inspect"

type store struct {
	membership contract.IMembershipSource
	chats      contract.IChatRepository
	close      func()
}

func openStore(ctx context.Context, config internal.Config, logger *slog.Logger) (store, error) {
	switch config.MembershipBackend {
	case internal.BackendPostgres:
		pool, err := repositories.Connect(ctx, config.DatabaseURL)
		if err != nil {
			return store{}, err
		}
		pg := repositories.NewPostgresStore(pool)
		if err := pg.Migrate(); err != nil {
			pool.Close()
			return store{}, err
		}
		return store{membership: pg, chats: pg, close: func() {
			logger.Info("Closing Postgres pool...")
			pool.Close()
		}}, nil

	default:
		db, err := badger.Open(buildBadgerOpts(ctx, config, logger))
		if err != nil {
			return store{}, fmt.Errorf("database opening failed: %w", err)
		}
		if logger.Enabled(ctx, slog.LevelDebug) {
			url := fmt.Sprintf("http://localhost:%d%s", config.DebugPort, debugEndpoint)
			logger.Info("Debug Badger inspector available", "url", url)
			database.StartDebugServer(db, config.DebugPort, debugEndpoint, presenceMapper)
		}
		bs := repositories.NewBadgerStore(db, logger)
		return store{membership: bs, chats: bs, close: func() {
			// Releases the directory lock and flushes buffers.
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		}}, nil
	}
}

func buildBadgerOpts(ctx context.Context, config internal.Config, logger *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}

func openCache(ctx context.Context, config internal.Config) (contract.ICache, func(), error) {
	switch config.CacheBackend {
	case internal.CacheRedis:
		c, err := cache.NewRedisCache(ctx, config.RedisURL, "chatroom:")
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	default:
		c, err := cache.NewRistrettoCache(config.CacheMaxEntries)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
}

// presenceMapper renders membership and chat keys in the badger inspector.
func presenceMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	switch {
	case strings.HasPrefix(key, "member:"):
		row.Type = "MEMBER"
		row.Detail = strings.TrimPrefix(key, "member:")
	case strings.HasPrefix(key, "chat:"):
		row.Type = "CHAT"
		var chat domain.Chat
		if err := json.Unmarshal(val, &chat); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Detail = chat.Name
	}
	return row
}
