package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/keshav2k4/employee-tracker-App/internal/location"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrTimeout          = errors.New("location request timed out")
	ErrUnavailable      = errors.New("location unavailable")
)

// Provider acquires one fix at a time. Acquire requests permission on every
// call; nothing is cached between calls.
type Provider interface {
	RequestPermission(ctx context.Context) error
	Acquire(ctx context.Context) (location.Sample, error)
}

// fix is the document a platform location daemon writes to the fix file.
type fix struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FileProvider reads the most recent fix from a JSON file. A fix older than
// MaxAge is treated as not yet available and polled for until Timeout.
type FileProvider struct {
	Path         string
	Timeout      time.Duration
	MaxAge       time.Duration
	PollInterval time.Duration

	now func() time.Time
}

func NewFileProvider(path string, timeout, maxAge time.Duration) *FileProvider {
	return &FileProvider{
		Path:         path,
		Timeout:      timeout,
		MaxAge:       maxAge,
		PollInterval: 250 * time.Millisecond,
		now:          time.Now,
	}
}

func (p *FileProvider) RequestPermission(_ context.Context) error {
	f, err := os.Open(p.Path)
	if errors.Is(err, fs.ErrPermission) {
		return ErrPermissionDenied
	}
	if err == nil {
		_ = f.Close()
	}
	return nil
}

func (p *FileProvider) Acquire(ctx context.Context) (location.Sample, error) {
	if err := p.RequestPermission(ctx); err != nil {
		return location.Sample{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	for {
		sample, err := p.read()
		if err == nil {
			return sample, nil
		}
		if !errors.Is(err, errNoFix) {
			return location.Sample{}, err
		}

		select {
		case <-ctx.Done():
			return location.Sample{}, ErrTimeout
		case <-ticker.C:
		}
	}
}

var errNoFix = errors.New("no fresh fix")

func (p *FileProvider) read() (location.Sample, error) {
	raw, err := os.ReadFile(p.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return location.Sample{}, errNoFix
	case errors.Is(err, fs.ErrPermission):
		return location.Sample{}, ErrPermissionDenied
	case err != nil:
		return location.Sample{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var f fix
	if err := json.Unmarshal(raw, &f); err != nil {
		return location.Sample{}, fmt.Errorf("%w: malformed fix: %v", ErrUnavailable, err)
	}

	now := p.now()
	if p.MaxAge > 0 && !f.RecordedAt.IsZero() && now.Sub(f.RecordedAt) > p.MaxAge {
		return location.Sample{}, errNoFix
	}

	sample := location.Sample{
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Accuracy:  f.Accuracy,
		Timestamp: now.UTC(),
	}
	if err := sample.Validate(); err != nil {
		return location.Sample{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return sample, nil
}

// StaticProvider always reports the same coordinate. It stands in for a
// device without a location source.
type StaticProvider struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Denied    bool

	now func() time.Time
}

func NewStaticProvider(lat, lng float64) *StaticProvider {
	return &StaticProvider{Latitude: lat, Longitude: lng, Accuracy: 10, now: time.Now}
}

func (p *StaticProvider) RequestPermission(_ context.Context) error {
	if p.Denied {
		return ErrPermissionDenied
	}
	return nil
}

func (p *StaticProvider) Acquire(ctx context.Context) (location.Sample, error) {
	if err := p.RequestPermission(ctx); err != nil {
		return location.Sample{}, err
	}
	if err := ctx.Err(); err != nil {
		return location.Sample{}, ErrTimeout
	}
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	return location.Sample{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  location.Meters(p.Accuracy),
		Timestamp: now().UTC(),
	}, nil
}
