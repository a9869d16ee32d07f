package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reflexledger/core/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    attributes TEXT NOT NULL,
    recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_events_type ON ledger_events(type, seq);
`

// ErrPathRequired is returned when the archive path is missing.
var ErrPathRequired = errors.New("archive: path must be configured")

// Record is one archived event.
type Record struct {
	Seq        int64
	Type       string
	Attributes map[string]string
	RecordedAt time.Time
}

// Query filters List. Zero values select everything.
type Query struct {
	Type     string
	AfterSeq int64
	Limit    int
}

// Archive appends committed ledger events to a SQLite table. It implements
// events.Emitter so it can be handed to the token directly.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open creates or opens the archive at path.
func Open(path string) (*Archive, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Archive{
		db:     db,
		logger: slog.Default().With(slog.String("component", "archive")),
		now:    time.Now,
	}, nil
}

// SetLogger overrides the logger used to report failed appends.
func (a *Archive) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.logger = logger.With(slog.String("component", "archive"))
	}
}

// SetClock overrides the time stamped on appended records.
func (a *Archive) SetClock(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

// Close releases database resources.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Emit appends e, logging rather than returning failures.
func (a *Archive) Emit(e events.Event) {
	if err := a.Append(context.Background(), e); err != nil {
		a.logger.Error("archive append failed", slog.String("type", e.EventType()), slog.Any("error", err))
	}
}

// Append stores e and returns once it is durable.
func (a *Archive) Append(ctx context.Context, e events.Event) error {
	if a == nil || a.db == nil {
		return fmt.Errorf("archive not configured")
	}
	envelope := e.Event()
	attributes, err := json.Marshal(envelope.Attributes)
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO ledger_events(type, attributes, recorded_at) VALUES(?, ?, ?)`,
		envelope.Type, string(attributes), a.now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns archived events in append order.
func (a *Archive) List(ctx context.Context, q Query) ([]Record, error) {
	stmt := `SELECT seq, type, attributes, recorded_at FROM ledger_events WHERE seq > ?`
	args := []interface{}{q.AfterSeq}
	if q.Type != "" {
		stmt += ` AND type = ?`
		args = append(args, q.Type)
	}
	stmt += ` ORDER BY seq`
	if q.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := a.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec        Record
			attributes string
			recorded   int64
		)
		if err := rows.Scan(&rec.Seq, &rec.Type, &attributes, &recorded); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attributes), &rec.Attributes); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", rec.Seq, err)
		}
		rec.RecordedAt = time.Unix(0, recorded).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of archived events of typ, or of all types when
// typ is empty.
func (a *Archive) Count(ctx context.Context, typ string) (int64, error) {
	var (
		n   int64
		err error
	)
	if typ == "" {
		err = a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_events`).Scan(&n)
	} else {
		err = a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_events WHERE type = ?`, typ).Scan(&n)
	}
	return n, err
}
