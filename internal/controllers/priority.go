package controllers

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/amaumene/redman/internal/models"
	"github.com/amaumene/redman/internal/telemetry"
)

// FreeloadProber reports whether a release can be downloaded without quota cost
type FreeloadProber interface {
	IsFreeload(ctx context.Context, torrentID int64) (bool, error)
}

// PrioritySelector orders the pool by weight and picks the next releases to download
type PrioritySelector struct {
	rng     *rand.Rand
	prober  FreeloadProber
	delay   time.Duration
	logger  *zerolog.Logger
	metrics *telemetry.Metrics
}

// NewPrioritySelector creates a selector. delay is waited after every freeload probe.
func NewPrioritySelector(rng *rand.Rand, prober FreeloadProber, delay time.Duration, logger *zerolog.Logger, metrics *telemetry.Metrics) *PrioritySelector {
	return &PrioritySelector{
		rng:     rng,
		prober:  prober,
		delay:   delay,
		logger:  logger,
		metrics: metrics,
	}
}

// Order groups releases by weight, shuffles inside each group and
// concatenates the groups from the highest weight down
func (s *PrioritySelector) Order(pool []models.Release) []models.Release {
	groups := make(map[int][]models.Release)
	for _, r := range pool {
		groups[r.Weight] = append(groups[r.Weight], r)
	}

	weights := make([]int, 0, len(groups))
	for w := range groups {
		weights = append(weights, w)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(weights)))

	ordered := make([]models.Release, 0, len(pool))
	for _, w := range weights {
		group := groups[w]
		s.rng.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
		ordered = append(ordered, group...)
	}

	return ordered
}

// SelectDirect takes the first n releases
func (s *PrioritySelector) SelectDirect(ordered []models.Release, n int) []models.Release {
	if n <= 0 {
		return nil
	}
	if n > len(ordered) {
		n = len(ordered)
	}
	return ordered[:n]
}

// SelectFreeload probes releases in order and keeps the freeload ones until n
// are accepted or the input runs out. A probe error stops the selection.
func (s *PrioritySelector) SelectFreeload(ctx context.Context, ordered []models.Release, n int) ([]models.Release, error) {
	var selected []models.Release

	for _, r := range ordered {
		if len(selected) >= n {
			break
		}

		free, err := s.prober.IsFreeload(ctx, r.ID)
		if perr := pause(ctx, s.delay); perr != nil && err == nil {
			err = perr
		}
		if err != nil {
			s.metrics.FreeloadProbesTotal.WithLabelValues("error").Inc()
			return selected, fmt.Errorf("failed to probe torrent %d: %w", r.ID, err)
		}

		if !free {
			s.metrics.FreeloadProbesTotal.WithLabelValues("charged").Inc()
			s.logger.Debug().Int64("torrent_id", r.ID).Msg("Skipping non-freeload release")
			continue
		}

		s.metrics.FreeloadProbesTotal.WithLabelValues("freeload").Inc()
		selected = append(selected, r)
	}

	return selected, nil
}
