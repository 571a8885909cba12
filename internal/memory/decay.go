package memory

import (
	"context"
	"math"
	"time"

	"relaycore.dev/agentcore/internal/model"
)

// defaultDecayRate is applied per week of disuse. Chosen so a learning
// untouched for ~3 weeks halves in confidence (ln(2)/3).
const defaultDecayRate = 0.231

// Decayer applies confidence decay to a category's learnings, deleting
// whatever falls below model.MinConfidence. It runs lightly after every
// completed task, per spec §4.5.
type Decayer struct {
	Store LearningStore
	Rate  float64 // weekly decay rate; 0 means defaultDecayRate
}

func (d *Decayer) rate() float64 {
	if d.Rate > 0 {
		return d.Rate
	}
	return defaultDecayRate
}

// Decay reads all learnings for category, decays confidence by elapsed
// weeks since last_used (or created_at if never used), and deletes those
// that fall under model.MinConfidence. Survivors are re-saved with their
// decayed confidence.
func (d *Decayer) Decay(ctx context.Context, category string, now time.Time) error {
	learnings, err := d.Store.ListLearnings(ctx, category)
	if err != nil {
		return err
	}

	for _, l := range learnings {
		reference := l.CreatedAt
		if l.LastUsed != nil {
			reference = *l.LastUsed
		}
		weeks := now.Sub(reference).Hours() / (24 * 7)
		if weeks <= 0 {
			continue
		}

		l.Confidence *= math.Exp(-d.rate() * weeks)

		if l.Confidence < model.MinConfidence {
			if err := d.Store.DeleteLearning(ctx, l.ID); err != nil {
				return err
			}
			continue
		}
		if _, err := d.Store.SaveLearning(ctx, l); err != nil {
			return err
		}
	}
	return nil
}
