package geo

import "testing"

func TestHaversineKm(t *testing.T) {
	// San Francisco (37.7749, -122.4194) to Oakland (37.8044, -122.2711) ~ 13 km
	d := HaversineKm(37.7749, -122.4194, 37.8044, -122.2711)
	if d < 12 || d > 15 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineKmSamePoint(t *testing.T) {
	if d := HaversineKm(-6.2, 106.816, -6.2, 106.816); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}
