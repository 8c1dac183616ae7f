package scoring

import (
	"math"
	"time"
)

// BoundaryMarkers describes the conversational boundaries of a context-class
// vector: what it is about, when it last moved, and who participated.
type BoundaryMarkers struct {
	// Topics are the topic tags attached to the context window.
	Topics []string

	// LastBoundaryAt is when the boundary was last updated.
	LastBoundaryAt time.Time

	// Participants are the distinct actor identifiers in the window.
	Participants []string
}

// CoherenceScore is the coherence payload attached to context-class vectors.
type CoherenceScore struct {
	Topic       float64 `json:"topic"`
	Temporal    float64 `json:"temporal"`
	Participant float64 `json:"participant"`
	Overall     float64 `json:"overall"`
}

// temporalHalfLife controls the decay of the temporal sub-score: coherence
// halves for every 6 hours since the last boundary update.
const temporalHalfLife = 6 * time.Hour

// Coherence combines topic, temporal and participant sub-scores into a
// coherence payload. The temporal sub-score decays exponentially with elapsed
// time since the last boundary update; the topic and participant sub-scores
// saturate as focus narrows (fewer distinct topics/participants read as more
// coherent).
func Coherence(markers BoundaryMarkers, now time.Time) CoherenceScore {
	score := CoherenceScore{
		Topic:       focusScore(len(markers.Topics)),
		Participant: focusScore(len(markers.Participants)),
	}

	if markers.LastBoundaryAt.IsZero() || now.Before(markers.LastBoundaryAt) {
		score.Temporal = 0
	} else {
		elapsed := now.Sub(markers.LastBoundaryAt)
		score.Temporal = math.Pow(0.5, float64(elapsed)/float64(temporalHalfLife))
	}

	score.Overall = (score.Topic + score.Temporal + score.Participant) / 3
	return score
}

// focusScore maps a distinct-item count onto [0,1]: a single topic or
// participant is maximally coherent, spread dilutes it.
func focusScore(n int) float64 {
	if n == 0 {
		return 0
	}
	return 1 / float64(n)
}
