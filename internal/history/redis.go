package history

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/keshav2k4/employee-tracker-App/internal/location"
	"github.com/redis/go-redis/v9"
)

// Key holds the whole serialized collection, newest-first.
const Key = "location_history"

// RedisStore keeps the history as one JSON array under Key. Writes are
// read-modify-write cycles of the full collection, serialized by mu.
type RedisStore struct {
	rdb *redis.Client
	key string
	mu  sync.Mutex
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, key: Key, now: time.Now}
}

func (s *RedisStore) Save(ctx context.Context, sample location.Sample) (Entry, error) {
	if err := sample.Validate(); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(ctx)
	switch {
	case errors.Is(err, errCorrupt):
		log.Printf("history payload unreadable, starting fresh")
	case err != nil:
		return Entry{}, storageErr("read", err)
	}

	ids := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		ids[e.ID] = struct{}{}
	}
	entry := Entry{
		Sample: sample,
		ID: newEntryID(sample.Timestamp, func(id string) bool {
			_, ok := ids[id]
			return ok
		}),
		SavedAt: s.now().UTC(),
	}

	updated := make([]Entry, 0, len(existing)+1)
	updated = append(updated, entry)
	updated = append(updated, existing...)
	if len(updated) > MaxItems {
		updated = updated[:MaxItems]
	}

	payload, err := json.Marshal(updated)
	if err != nil {
		return Entry{}, storageErr("encode", err)
	}
	if err := s.rdb.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return Entry{}, storageErr("write", err)
	}
	return entry, nil
}

func (s *RedisStore) All(ctx context.Context) []Entry {
	entries, err := s.load(ctx)
	if err != nil {
		log.Printf("history read error: %v", err)
		return []Entry{}
	}
	return entries
}

func (s *RedisStore) ByDateRange(ctx context.Context, start, end *time.Time) []Entry {
	return FilterByRange(s.All(ctx), start, end, s.now())
}

func (s *RedisStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rdb == nil {
		return storageErr("clear", errNoClient)
	}
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return storageErr("clear", err)
	}
	return nil
}

func (s *RedisStore) Stats(ctx context.Context) Stats {
	return ComputeStats(s.All(ctx), s.now())
}

func (s *RedisStore) Export(ctx context.Context) ([]byte, error) {
	return exportJSON(s.All(ctx))
}

var (
	errCorrupt  = errors.New("corrupt history payload")
	errNoClient = errors.New("redis not configured")
)

// load returns an empty collection for a missing key and errCorrupt (with an
// empty collection) when the payload cannot be decoded.
func (s *RedisStore) load(ctx context.Context) ([]Entry, error) {
	if s.rdb == nil {
		return nil, errNoClient
	}
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return []Entry{}, errCorrupt
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
