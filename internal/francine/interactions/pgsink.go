package interactions

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const DefaultTable = "interactions"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// PostgresSink inserts records into a Postgres table.
type PostgresSink struct {
	db    *sql.DB
	table string
}

// OpenPostgres connects with the pgx driver and creates the table if needed.
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, ErrInvalidTable.Msg("invalid table name: " + table)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, ErrSinkOpen.MsgErr("failed to open database connection", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, ErrSinkOpen.MsgErr("failed to ping database", err)
	}
	s := &PostgresSink{db: db, table: quoteTable(table)}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, ErrSinkOpen.MsgErr("failed to create table", err)
	}
	return s, nil
}

func quoteTable(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return pq.QuoteIdentifier(name[:i]) + "." + pq.QuoteIdentifier(name[i+1:])
		}
	}
	return pq.QuoteIdentifier(name)
}

func (s *PostgresSink) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		id UUID PRIMARY KEY,
		session_id TEXT NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		payload JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`)
	return err
}

func (s *PostgresSink) Name() string { return "postgres" }

// Write inserts rec. A record that is already stored is not an error.
func (s *PostgresSink) Write(ctx context.Context, rec Record) error {
	var payload pgtype.JSONB
	if err := payload.Set(rec.Payload()); err != nil {
		return ErrSinkWrite.Err(err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.table+` (id, session_id, prompt, response, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.SessionID, rec.Prompt, rec.Response, payload, rec.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			log.Ctx(ctx).Debug().Str("record_id", rec.ID).Msg("interaction already stored")
			return nil
		}
		return ErrSinkWrite.Err(err)
	}
	return nil
}

// Count returns the number of stored records for a session.
func (s *PostgresSink) Count(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.table+` WHERE session_id = $1`, sessionID).Scan(&n)
	return n, err
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
