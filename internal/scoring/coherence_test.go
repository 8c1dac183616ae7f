package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoherence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("single topic and participant, fresh boundary", func(t *testing.T) {
		score := Coherence(BoundaryMarkers{
			Topics:         []string{"testing"},
			Participants:   []string{"ada"},
			LastBoundaryAt: now,
		}, now)

		assert.InDelta(t, 1.0, score.Topic, 1e-9)
		assert.InDelta(t, 1.0, score.Temporal, 1e-9)
		assert.InDelta(t, 1.0, score.Participant, 1e-9)
		assert.InDelta(t, 1.0, score.Overall, 1e-9)
	})

	t.Run("temporal decays with elapsed time", func(t *testing.T) {
		markers := BoundaryMarkers{
			Topics:         []string{"testing"},
			Participants:   []string{"ada"},
			LastBoundaryAt: now.Add(-6 * time.Hour),
		}
		score := Coherence(markers, now)
		assert.InDelta(t, 0.5, score.Temporal, 1e-9, "one half-life halves the temporal sub-score")

		older := markers
		older.LastBoundaryAt = now.Add(-12 * time.Hour)
		assert.InDelta(t, 0.25, Coherence(older, now).Temporal, 1e-9)
	})

	t.Run("topic spread dilutes coherence", func(t *testing.T) {
		score := Coherence(BoundaryMarkers{
			Topics:         []string{"a", "b", "c", "d"},
			Participants:   []string{"ada"},
			LastBoundaryAt: now,
		}, now)
		assert.InDelta(t, 0.25, score.Topic, 1e-9)
	})

	t.Run("empty markers score zero", func(t *testing.T) {
		score := Coherence(BoundaryMarkers{}, now)
		assert.Zero(t, score.Topic)
		assert.Zero(t, score.Temporal)
		assert.Zero(t, score.Participant)
		assert.Zero(t, score.Overall)
	})
}
