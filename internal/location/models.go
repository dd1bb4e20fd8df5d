package location

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidSample = errors.New("invalid location sample")

var validate = validator.New()

// Sample is a single fix. It is treated as immutable once created; an empty
// LocationName means no display label could be resolved.
type Sample struct {
	Latitude     float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64   `json:"longitude" validate:"gte=-180,lte=180"`
	Accuracy     *float64  `json:"accuracy" validate:"omitempty,gte=0"`
	Timestamp    time.Time `json:"timestamp"`
	LocationName string    `json:"location_name,omitempty"`
}

// Validate checks coordinate ranges and the capture time.
func (s Sample) Validate() error {
	if s.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp required", ErrInvalidSample)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}
	return nil
}

// WithName returns a copy of s carrying the given display label.
func (s Sample) WithName(name string) Sample {
	s.LocationName = name
	return s
}

// Meters is a helper for building samples with a known accuracy.
func Meters(v float64) *float64 {
	return &v
}
