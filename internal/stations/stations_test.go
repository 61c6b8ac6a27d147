package stations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return New(map[string]Station{
		"SYD": {DisplayName: "Sydney", Latitude: -33.86, Longitude: 151.21, Region: "NSW"},
		"MEL": {DisplayName: "Melbourne", Latitude: -37.81, Longitude: 144.96, Region: "VIC"},
	})
}

func TestHaversine_SelfDistanceIsZero(t *testing.T) {
	d := Haversine(-33.87, 151.21, -33.87, 151.21)
	assert.InDelta(t, 0, d, 1e-9)
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Haversine(-33.87, 151.21, -37.81, 144.96)
	b := Haversine(-37.81, 144.96, -33.87, 151.21)
	assert.InDelta(t, a, b, 1e-9)
}

func TestHaversine_TriangleInequality(t *testing.T) {
	ab := Haversine(-33.87, 151.21, -37.81, 144.96)
	bc := Haversine(-37.81, 144.96, -27.47, 153.03)
	ac := Haversine(-33.87, 151.21, -27.47, 153.03)
	assert.LessOrEqual(t, ac, ab+bc+1e-9)
}

func TestRegistry_Nearest(t *testing.T) {
	r := testRegistry()
	// S4: query close to Sydney should return Sydney at ~1km.
	result, ok := r.Nearest(-33.87, 151.21)
	require.True(t, ok)
	assert.Equal(t, "SYD", result.ID)
	assert.InDelta(t, 1.0, result.DistanceKm, 1.0)
}

func TestRegistry_Nearest_EmptyReturnsFalse(t *testing.T) {
	r := New(nil)
	_, ok := r.Nearest(0, 0)
	assert.False(t, ok)
}

func TestRegistry_Info(t *testing.T) {
	r := testRegistry()
	s, ok := r.Info("SYD")
	require.True(t, ok)
	assert.Equal(t, "Sydney", s.DisplayName)

	_, ok = r.Info("UNKNOWN")
	assert.False(t, ok)
}

func TestRegistry_Search(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{name: "by name substring", query: "syd", expected: []string{"SYD"}},
		{name: "by region", query: "vic", expected: []string{"MEL"}},
		{name: "by id", query: "mel", expected: []string{"MEL"}},
		{name: "no match", query: "xyz", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Search(tt.query)
			ids := make([]string, len(got))
			for i, s := range got {
				ids[i] = s.ID
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestRegistry_Search_SortedByRegionThenName(t *testing.T) {
	r := New(map[string]Station{
		"A": {DisplayName: "Zeta", Region: "AAA"},
		"B": {DisplayName: "Alpha", Region: "AAA"},
		"C": {DisplayName: "Beta", Region: "BBB"},
	})
	got := r.Search("")
	require.Len(t, got, 3)
	assert.Equal(t, "Alpha", got[0].DisplayName)
	assert.Equal(t, "Zeta", got[1].DisplayName)
	assert.Equal(t, "Beta", got[2].DisplayName)
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Sydney to Melbourne is roughly 714km great-circle.
	d := Haversine(-33.8688, 151.2093, -37.8136, 144.9631)
	assert.True(t, math.Abs(d-714) < 30, "expected ~714km, got %.1f", d)
}
