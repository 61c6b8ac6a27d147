package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duds/hydro-automation/internal/stations"
	"github.com/Duds/hydro-automation/types"
)

func TestNew_NoPostcodeNoTemperature_BothNil(t *testing.T) {
	svc := New(Config{}, stations.Default(), nil)
	assert.Nil(t, svc.Daylight)
	assert.Nil(t, svc.Observation)

	sunrise, sunset := svc.SunriseSunset()
	assert.Nil(t, sunrise)
	assert.Nil(t, sunset)
	assert.Nil(t, svc.Temperature())
	assert.Equal(t, 1.0, svc.TemperatureFactorAt(types.NewTimeOfDay(12, 0)))
}

func TestNew_PostcodeResolvesDaylight(t *testing.T) {
	svc := New(Config{PostalCode: "2000", Timezone: "Australia/Sydney"}, stations.Default(), nil)
	require.NotNil(t, svc.Daylight)
	assert.True(t, svc.Daylight.Located())
}

func TestNew_AutoStationSelectsNearestToPostcode(t *testing.T) {
	svc := New(Config{
		PostalCode:         "2000",
		Timezone:           "Australia/Sydney",
		TemperatureEnabled: true,
		StationID:          "auto",
		ObservationBaseURL: "http://example.invalid",
	}, stations.Default(), nil)

	require.NotNil(t, svc.Observation)
	assert.Equal(t, "94768", svc.Observation.StationID())
}

func TestNew_AutoStationWithNoLocationFallsBackToDefault(t *testing.T) {
	svc := New(Config{
		TemperatureEnabled: true,
		StationID:          "auto",
		ObservationBaseURL: "http://example.invalid",
	}, stations.Default(), nil)

	require.NotNil(t, svc.Observation)
	assert.Equal(t, defaultStationID, svc.Observation.StationID())
}

func TestNew_ExplicitStationIDUsedVerbatim(t *testing.T) {
	svc := New(Config{
		TemperatureEnabled: true,
		StationID:          "95936",
		ObservationBaseURL: "http://example.invalid",
	}, stations.Default(), nil)

	require.NotNil(t, svc.Observation)
	assert.Equal(t, "95936", svc.Observation.StationID())
	assert.NotEmpty(t, svc.Observation.DisplayName())
}

func TestNew_TemperatureDisabled_ObservationNil(t *testing.T) {
	svc := New(Config{TemperatureEnabled: false}, stations.Default(), nil)
	assert.Nil(t, svc.Observation)
}
