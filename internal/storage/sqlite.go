//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"qotdbot/internal/qotd"
	logx "qotdbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) (map[string]*qotd.GuildSchedule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, doc FROM guild_schedules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]*qotd.GuildSchedule{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var g qotd.GuildSchedule
		if err := json.Unmarshal([]byte(doc), &g); err != nil {
			// One bad row must not take every tenant down with it.
			s.log.Warn("skipping corrupt guild row", logx.String("guild", id), logx.Err(err))
			continue
		}
		out[id] = &g
	}
	return out, rows.Err()
}

// Save rewrites every row in one transaction, mirroring the file driver's
// wholesale-document semantics.
func (s *sqliteStore) Save(ctx context.Context, guilds map[string]*qotd.GuildSchedule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM guild_schedules`); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for id, g := range guilds {
		b, err := json.Marshal(g)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO guild_schedules(guild_id, doc, updated_at) VALUES(?,?,?)`,
			id, string(b), now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
