/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRequireSamplesCountInCounter(t *testing.T) {
	eventsCounter := prometheus.NewCounter(prometheus.CounterOpts{Name: "events"})
	eventsCounter.Add(42)

	mockT := &MockT{}
	RequireSamplesCountInCounter(mockT, eventsCounter, 41)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireSamplesCountInCounter(mockT, eventsCounter, 42)
	require.False(t, mockT.Failed)
}

func TestRequireValueInGauge(t *testing.T) {
	activeGauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "active"})
	activeGauge.Set(42)

	mockT := &MockT{}
	RequireValueInGauge(mockT, activeGauge, 41)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireValueInGauge(mockT, activeGauge, 42)
	require.False(t, mockT.Failed)

	activeGauge.Dec()
	mockT = &MockT{}
	RequireValueInGauge(mockT, activeGauge, 41)
	require.False(t, mockT.Failed)
}
