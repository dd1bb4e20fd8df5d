package history

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/keshav2k4/employee-tracker-App/internal/db"
	"github.com/keshav2k4/employee-tracker-App/internal/location"
)

const schema = `
	CREATE TABLE IF NOT EXISTS location_history (
		seq           BIGSERIAL,
		id            TEXT PRIMARY KEY,
		latitude      DOUBLE PRECISION NOT NULL,
		longitude     DOUBLE PRECISION NOT NULL,
		accuracy      DOUBLE PRECISION,
		captured_at   TIMESTAMPTZ NOT NULL,
		location_name TEXT,
		saved_at      TIMESTAMPTZ NOT NULL
	)
`

const selectColumns = `
	SELECT id, latitude, longitude, COALESCE(accuracy, -1), captured_at, COALESCE(location_name, ''), saved_at
	FROM location_history
`

// PostgresStore keeps one row per entry; insertion order is the seq column.
type PostgresStore struct {
	db  db.Querier
	mu  sync.Mutex
	now func() time.Time
}

func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{db: q, now: time.Now}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return storageErr("schema", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, sample location.Sample) (Entry, error) {
	if err := sample.Validate(); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		Sample:  sample,
		ID:      newEntryID(sample.Timestamp, nil),
		SavedAt: s.now().UTC(),
	}

	var name *string
	if sample.LocationName != "" {
		name = &sample.LocationName
	}
	// Insert and trim commit together so the cap holds for every visible state.
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Entry{}, storageErr("begin", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO location_history (id, latitude, longitude, accuracy, captured_at, location_name, saved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, sample.Latitude, sample.Longitude, sample.Accuracy, sample.Timestamp, name, entry.SavedAt)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Entry{}, storageErr("insert", err)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM location_history
		WHERE seq <= (SELECT seq FROM location_history ORDER BY seq DESC OFFSET $1 LIMIT 1)
	`, MaxItems)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Entry{}, storageErr("trim", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, storageErr("commit", err)
	}
	return entry, nil
}

func (s *PostgresStore) All(ctx context.Context) []Entry {
	return s.query(ctx, selectColumns+` ORDER BY seq DESC`)
}

func (s *PostgresStore) ByDateRange(ctx context.Context, start, end *time.Time) []Entry {
	from := time.Unix(0, 0)
	if start != nil {
		from = *start
	}
	to := s.now()
	if end != nil {
		to = *end
	}
	return s.query(ctx, selectColumns+` WHERE captured_at BETWEEN $1 AND $2 ORDER BY seq DESC`, from, to)
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(ctx, `DELETE FROM location_history`); err != nil {
		return storageErr("clear", err)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) Stats {
	return ComputeStats(s.All(ctx), s.now())
}

func (s *PostgresStore) Export(ctx context.Context) ([]byte, error) {
	return exportJSON(s.All(ctx))
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) []Entry {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		log.Printf("history query error: %v", err)
		return []Entry{}
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var accuracy float64
		if err := rows.Scan(&e.ID, &e.Latitude, &e.Longitude, &accuracy, &e.Timestamp, &e.LocationName, &e.SavedAt); err != nil {
			log.Printf("history scan error: %v", err)
			return []Entry{}
		}
		if accuracy >= 0 {
			e.Accuracy = location.Meters(accuracy)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		log.Printf("history rows error: %v", err)
		return []Entry{}
	}
	return entries
}
