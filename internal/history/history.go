package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/keshav2k4/employee-tracker-App/internal/location"
)

var ErrStorage = errors.New("history storage error")

// Store is the durable, bounded, newest-first location log.
//
// Save and Clear surface ErrStorage. Read operations never fail: missing or
// unreadable data yields an empty result.
type Store interface {
	Save(ctx context.Context, sample location.Sample) (Entry, error)
	All(ctx context.Context) []Entry
	ByDateRange(ctx context.Context, start, end *time.Time) []Entry
	Clear(ctx context.Context) error
	Stats(ctx context.Context) Stats
	Export(ctx context.Context) ([]byte, error)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// newEntryID derives an id from the capture time plus a random suffix,
// retrying until it is unique among taken.
func newEntryID(capturedAt time.Time, taken func(string) bool) string {
	prefix := strconv.FormatInt(capturedAt.UnixMilli(), 10) + "-"
	for {
		id := prefix + uuid.NewString()[:8]
		if taken == nil || !taken(id) {
			return id
		}
	}
}

// FilterByRange keeps entries captured within [start, end]. A nil start means
// the epoch and a nil end means now.
func FilterByRange(entries []Entry, start, end *time.Time, now time.Time) []Entry {
	from := time.Unix(0, 0)
	if start != nil {
		from = *start
	}
	to := now
	if end != nil {
		to = *end
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.Before(from) || e.Timestamp.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ComputeStats expects entries newest-first.
func ComputeStats(entries []Entry, now time.Time) Stats {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.Add(-7 * 24 * time.Hour)

	stats := Stats{Total: len(entries)}
	for _, e := range entries {
		if !e.Timestamp.Before(startOfDay) {
			stats.Today++
		}
		if !e.Timestamp.Before(weekAgo) {
			stats.ThisWeek++
		}
	}
	if len(entries) > 0 {
		last := entries[0].Timestamp
		stats.LastUpdate = &last
	}
	return stats
}

func exportJSON(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

// Merge combines the local history with entries fetched from the server.
// Local entries are authoritative: a remote entry captured in the same second
// at the same coordinates as a local one is dropped. The result is ordered
// newest-first by capture time.
func Merge(local, remote []Entry) []Entry {
	seen := make(map[string]struct{}, len(local))
	out := make([]Entry, 0, len(local)+len(remote))
	for _, e := range local {
		seen[mergeKey(e)] = struct{}{}
		out = append(out, e)
	}
	for _, e := range remote {
		if _, dup := seen[mergeKey(e)]; dup {
			continue
		}
		seen[mergeKey(e)] = struct{}{}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func mergeKey(e Entry) string {
	return fmt.Sprintf("%d|%.5f|%.5f", e.Timestamp.Unix(), round5(e.Latitude), round5(e.Longitude))
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
