// Package estimate fills per-capita metric gaps from comparable councils:
// same region, similar population. Estimates are advisory - they surface on
// profiles as medium-confidence observations, never as raw data.
package estimate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicbench/council-cli/internal/catalog"
	"github.com/civicbench/council-cli/internal/model"
)

// Config bounds the peer search.
type Config struct {
	// MaxPeers caps how many peers are consulted.
	MaxPeers int
	// PopulationBand is the allowed fraction above and below the target's
	// population. 0.5 admits peers between 50% and 150% of the target.
	PopulationBand float64
}

// DefaultConfig mirrors the production defaults: five peers within +/-50%.
func DefaultConfig() Config {
	return Config{MaxPeers: 5, PopulationBand: 0.5}
}

// PeerSource lists candidate peers for a council. Implementations return at
// most limit councils in the region with population in [minPop, maxPop],
// never including excludeID.
type PeerSource interface {
	PeerCouncils(ctx context.Context, region string, minPop, maxPop int64, excludeID string, limit int) ([]model.Council, error)
}

// ValueFunc returns a peer's own value for a canonical metric, if it has
// one. Peers contribute direct or derived values only, so estimation never
// recurses.
type ValueFunc func(ctx context.Context, peer model.Council, canonicalName string) (float64, bool)

// PeerEstimate is the outcome of one peer-band estimation.
type PeerEstimate struct {
	CanonicalName string  `json:"canonical_name"`
	Value         float64 `json:"value"`
	PeerCount     int     `json:"peer_count"` // peers that contributed a value
	PoolSize      int     `json:"pool_size"`  // peers consulted
}

// Estimator derives missing per-capita metrics from peer councils.
type Estimator struct {
	peers PeerSource
	cfg   Config
}

// New returns an Estimator over the given peer source.
func New(peers PeerSource, cfg Config) *Estimator {
	if cfg.MaxPeers <= 0 {
		cfg.MaxPeers = DefaultConfig().MaxPeers
	}
	if cfg.PopulationBand <= 0 {
		cfg.PopulationBand = DefaultConfig().PopulationBand
	}
	return &Estimator{peers: peers, cfg: cfg}
}

// EstimateMetric returns the mean of peer values for a per-capita metric.
// It returns (nil, nil) when estimation does not apply: the metric is not
// per-capita, the target has no usable population, or no peer has a value.
func (e *Estimator) EstimateMetric(ctx context.Context, def catalog.Definition, target model.Council, value ValueFunc) (*PeerEstimate, error) {
	if !def.PerCapita() || !target.HasPopulation() {
		return nil, nil
	}

	pop := float64(target.Population)
	minPop := int64(pop * (1 - e.cfg.PopulationBand))
	maxPop := int64(pop * (1 + e.cfg.PopulationBand))

	peers, err := e.peers.PeerCouncils(ctx, target.Region, minPop, maxPop, target.ID, e.cfg.MaxPeers)
	if err != nil {
		return nil, eris.Wrapf(err, "estimate: peers for %s", target.ID)
	}
	if len(peers) > e.cfg.MaxPeers {
		peers = peers[:e.cfg.MaxPeers]
	}
	if len(peers) == 0 {
		return nil, nil
	}

	var sum float64
	count := 0
	for _, peer := range peers {
		if v, ok := value(ctx, peer, def.CanonicalName); ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return nil, nil
	}

	est := &PeerEstimate{
		CanonicalName: def.CanonicalName,
		Value:         sum / float64(count),
		PeerCount:     count,
		PoolSize:      len(peers),
	}

	zap.L().Info("estimated metric from peers",
		zap.String("council", target.ID),
		zap.String("metric", def.CanonicalName),
		zap.Float64("value", est.Value),
		zap.Int("peers_used", est.PeerCount),
		zap.Int("peers_consulted", est.PoolSize),
	)

	return est, nil
}
