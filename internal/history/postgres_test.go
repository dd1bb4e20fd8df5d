package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

var errDB = errors.New("db error")

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func historyRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "latitude", "longitude", "accuracy", "captured_at", "location_name", "saved_at"})
}

func TestPostgresSaveTrims(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO location_history`).
		WithArgs(pgxmock.AnyArg(), 37.7749, -122.4194, pgxmock.AnyArg(), ts, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM location_history\s+WHERE seq <=`).
		WithArgs(MaxItems).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	entry, err := store.Save(context.Background(), sampleAt(ts).WithName("SF"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if entry.ID == "" {
		t.Fatalf("expected id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSaveInsertError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO location_history`).WillReturnError(errDB)
	mock.ExpectRollback()

	_, err := store.Save(context.Background(), sampleAt(time.Now()))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSaveTrimErrorRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO location_history`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM location_history\s+WHERE seq <=`).
		WithArgs(MaxItems).
		WillReturnError(errDB)
	mock.ExpectRollback()

	_, err := store.Save(context.Background(), sampleAt(time.Now()))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("insert was not rolled back: %v", err)
	}
}

func TestPostgresSaveBeginAndCommitErrors(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errDB)
	if _, err := store.Save(context.Background(), sampleAt(time.Now())); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error on begin, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO location_history`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM location_history`).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit().WillReturnError(errDB)
	if _, err := store.Save(context.Background(), sampleAt(time.Now())); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error on commit, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresAllAndStats(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, latitude, longitude, COALESCE\(accuracy, -1\)`).
		WillReturnRows(historyRows().
			AddRow("2", 37.7749, -122.4194, 10.0, ts, "SF", now).
			AddRow("1", 37.8044, -122.2711, -1.0, ts.Add(-48*time.Hour), "", now))

	stats := store.Stats(context.Background())
	if stats.Total != 2 || stats.Today != 1 || stats.ThisWeek != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.LastUpdate == nil || !stats.LastUpdate.Equal(ts) {
		t.Fatalf("unexpected last update")
	}

	mock.ExpectQuery(`SELECT id, latitude, longitude`).
		WillReturnRows(historyRows().
			AddRow("1", 37.8044, -122.2711, -1.0, ts, "", now))
	all := store.All(context.Background())
	if len(all) != 1 || all[0].Accuracy != nil {
		t.Fatalf("expected null accuracy to map to nil")
	}
}

func TestPostgresByDateRange(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	mock.ExpectQuery(`WHERE captured_at BETWEEN \$1 AND \$2 ORDER BY seq DESC`).
		WithArgs(time.Unix(0, 0), now).
		WillReturnRows(historyRows().AddRow("1", 1.0, 2.0, 5.0, now, "Here", now))

	got := store.ByDateRange(context.Background(), nil, nil)
	if len(got) != 1 || got[0].LocationName != "Here" {
		t.Fatalf("unexpected range result: %+v", got)
	}
}

func TestPostgresReadErrorDegrades(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, latitude, longitude`).WillReturnError(errDB)

	if got := store.All(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty result on query error")
	}
}

func TestPostgresClear(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM location_history`).WillReturnResult(pgxmock.NewResult("DELETE", 3))
	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}

	mock.ExpectExec(`DELETE FROM location_history`).WillReturnError(errDB)
	if err := store.Clear(context.Background()); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestPostgresEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS location_history`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
}
