package repositories

import (
	"chatroom/domain"
	"chatroom/errors"
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/samber/lo"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Connect creates a pgx connection pool and verifies it with a ping.
// SQLAlchemy style driver suffixes such as "postgresql+asyncpg://" are accepted.
func Connect(ctx context.Context, dsn string, opts ...func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(normalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 4
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	if cfg.HealthCheckPeriod == 0 {
		cfg.HealthCheckPeriod = time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

func normalizeDSN(dsn string) string {
	s := strings.TrimSpace(dsn)
	for _, driver := range []string{"+asyncpg", "+pgx", "+psycopg2", "+psycopg"} {
		s = strings.Replace(s, "postgresql"+driver+"://", "postgresql://", 1)
		s = strings.Replace(s, "postgres"+driver+"://", "postgres://", 1)
	}
	return s
}

// PostgresStore reads memberships and chats from the chat_member and chat tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) PostgresStore {
	return PostgresStore{pool: pool}
}

// Migrate applies the embedded goose migrations.
func (p PostgresStore) Migrate() error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()

	goose.SetBaseFS(sub)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (p PostgresStore) ListChatsForUser(ctx context.Context, userID domain.UserID) ([]domain.ChatID, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT chat_id FROM chat_member WHERE user_id = $1 ORDER BY chat_id`, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMembershipSourceUnavailable, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMembershipSourceUnavailable, err)
	}
	return lo.Map(ids, func(id int64, _ int) domain.ChatID { return domain.ChatID(id) }), nil
}

func (p PostgresStore) GetChat(ctx context.Context, chatID domain.ChatID) (domain.Chat, error) {
	var (
		id        int64
		name      string
		createdAt time.Time
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM chat WHERE id = $1`, int64(chatID)).Scan(&id, &name, &createdAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Chat{}, fmt.Errorf("%w: %d", errors.ErrChatNotFound, chatID)
	}
	if err != nil {
		return domain.Chat{}, fmt.Errorf("read chat %d: %w", chatID, err)
	}
	return domain.Chat{ID: domain.ChatID(id), Name: name, CreatedAt: createdAt.UTC()}, nil
}

func (p PostgresStore) AddMember(ctx context.Context, m domain.Membership) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO chat_member (user_id, chat_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		int64(m.UserID), int64(m.ChatID))
	return err
}

func (p PostgresStore) RemoveMember(ctx context.Context, m domain.Membership) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM chat_member WHERE user_id = $1 AND chat_id = $2`,
		int64(m.UserID), int64(m.ChatID))
	return err
}

func (p PostgresStore) SaveChat(ctx context.Context, chat domain.Chat) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO chat (id, name, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		int64(chat.ID), chat.Name, chat.CreatedAt)
	return err
}
