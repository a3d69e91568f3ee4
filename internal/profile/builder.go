// Package profile assembles standardized council profiles from stored source
// payloads, official returns, and peer estimates.
package profile

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicbench/council-cli/internal/catalog"
	"github.com/civicbench/council-cli/internal/estimate"
	"github.com/civicbench/council-cli/internal/model"
)

// ErrUnknownCouncil is returned when the requested council is not in the
// registry.
var ErrUnknownCouncil = eris.New("profile: unknown council")

// OriginOfficial marks values taken from a council's official metrics return
// rather than a scraped payload.
const OriginOfficial = "official"

// DataSource supplies the stored inputs a profile is built from.
type DataSource interface {
	Council(ctx context.Context, id string) (*model.Council, error)
	Payloads(ctx context.Context, councilID string) ([]model.SourcePayload, error)
	OfficialMetrics(ctx context.Context, councilID string) (*model.OfficialMetrics, error)
}

// Builder turns stored council data into profiles. Profiles are computed
// fresh on every call and never written back.
type Builder struct {
	catalog   *catalog.Catalog
	source    DataSource
	estimator *estimate.Estimator
	now       func() time.Time
}

// New returns a Builder over the given catalog, data source, and estimator.
func New(cat *catalog.Catalog, source DataSource, est *estimate.Estimator) *Builder {
	return &Builder{catalog: cat, source: source, estimator: est, now: time.Now}
}

// Build assembles the profile for one council. Every catalog metric is
// resolved from the merged raw data first, then estimated from peers where
// estimation applies; whatever matched nothing is kept as unique data.
func (b *Builder) Build(ctx context.Context, councilID string) (*model.Profile, error) {
	council, err := b.source.Council(ctx, councilID)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: load council %s", councilID)
	}
	if council == nil {
		return nil, eris.Wrapf(ErrUnknownCouncil, "id %s", councilID)
	}

	raw, err := b.loadRaw(ctx, councilID)
	if err != nil {
		return nil, err
	}
	inputs := normalizeInputs(raw.nums, *council)

	observations := make(map[string]model.Observation, b.catalog.Len())
	peerValue := b.peerValues()
	for _, def := range b.catalog.Definitions() {
		if rawVal, origin, ok := b.findRaw(def, raw, council.Region); ok {
			value, derived := b.catalog.Normalize(rawVal, def.CanonicalName, inputs)
			source := model.SourceDirect
			if derived {
				source = model.SourceCalculated
			}
			rv := rawVal
			observations[def.CanonicalName] = model.Observation{
				CanonicalName: def.CanonicalName,
				Value:         value,
				RawValue:      &rv,
				Source:        source,
				Confidence:    model.ConfidenceHigh,
				Origin:        origin,
			}
			continue
		}

		est, err := b.estimator.EstimateMetric(ctx, def, *council, peerValue)
		if err != nil {
			return nil, err
		}
		if est == nil {
			continue
		}
		observations[def.CanonicalName] = model.Observation{
			CanonicalName: def.CanonicalName,
			Value:         est.Value,
			Source:        model.SourceEstimated,
			Confidence:    model.ConfidenceMedium,
		}
	}

	profile := &model.Profile{
		CouncilID:     council.ID,
		CouncilName:   council.Name,
		Region:        council.Region,
		Population:    council.Population,
		Observations:  observations,
		UniqueData:    uniqueData(raw, observations),
		CoverageScore: float64(len(observations)) / float64(b.catalog.Len()),
		BuiltAt:       b.now(),
	}

	zap.L().Info("built council profile",
		zap.String("council", council.ID),
		zap.Int("observations", len(observations)),
		zap.Int("unique_data", len(profile.UniqueData)),
		zap.Float64("coverage", profile.CoverageScore),
	)

	return profile, nil
}

// MissingMetrics lists the catalog metrics a profile could not resolve, in
// catalog order.
func (b *Builder) MissingMetrics(p *model.Profile) []catalog.Definition {
	var missing []catalog.Definition
	for _, def := range b.catalog.Definitions() {
		if _, ok := p.Observations[def.CanonicalName]; !ok {
			missing = append(missing, def)
		}
	}
	return missing
}

// rawData is the merged flat view of every stored source for one council,
// official figures applied last so they win key collisions.
type rawData struct {
	nums    map[string]float64
	texts   map[string]string
	origins map[string]string
	numKeys []string
}

func (r *rawData) setNum(key string, v float64, origin string) {
	delete(r.texts, key)
	r.nums[key] = v
	r.origins[key] = origin
}

func (r *rawData) setText(key, v, origin string) {
	delete(r.nums, key)
	r.texts[key] = v
	r.origins[key] = origin
}

func (b *Builder) loadRaw(ctx context.Context, councilID string) (*rawData, error) {
	payloads, err := b.source.Payloads(ctx, councilID)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: load payloads for %s", councilID)
	}

	raw := &rawData{
		nums:    make(map[string]float64),
		texts:   make(map[string]string),
		origins: make(map[string]string),
	}
	for _, p := range payloads {
		nums, texts := p.Data.Flatten()
		for k, v := range nums {
			raw.setNum(k, v, p.Source)
		}
		for k, v := range texts {
			raw.setText(k, v, p.Source)
		}
	}

	official, err := b.source.OfficialMetrics(ctx, councilID)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: load official metrics for %s", councilID)
	}
	for k, v := range official.Flat() {
		raw.setNum(k, v, OriginOfficial)
	}

	raw.numKeys = make([]string, 0, len(raw.nums))
	for k := range raw.nums {
		raw.numKeys = append(raw.numKeys, k)
	}
	sort.Strings(raw.numKeys)

	return raw, nil
}

// findRaw resolves a definition against the merged flat map: the canonical
// key first, then every other key run through the matcher.
func (b *Builder) findRaw(def catalog.Definition, raw *rawData, region string) (float64, string, bool) {
	if v, ok := raw.nums[def.CanonicalName]; ok {
		return v, raw.origins[def.CanonicalName], true
	}
	for _, key := range raw.numKeys {
		if key == def.CanonicalName {
			continue
		}
		matched, ok := b.catalog.Match(key, region)
		if !ok || matched.CanonicalName != def.CanonicalName {
			continue
		}
		return raw.nums[key], raw.origins[key], true
	}
	return 0, "", false
}

// normalizeInputs is the variable environment for derivation formulas: every
// numeric raw value, with registry population and area backfilled when no
// source carried them.
func normalizeInputs(nums map[string]float64, c model.Council) map[string]float64 {
	inputs := make(map[string]float64, len(nums)+3)
	for k, v := range nums {
		inputs[k] = v
	}
	if c.HasPopulation() {
		if _, ok := inputs["population_served"]; !ok {
			inputs["population_served"] = float64(c.Population)
		}
		if _, ok := inputs["population"]; !ok {
			inputs["population"] = float64(c.Population)
		}
	}
	if c.AreaKm2 > 0 {
		if _, ok := inputs["area_km2"]; !ok {
			inputs["area_km2"] = c.AreaKm2
		}
	}
	return inputs
}

type peerData struct {
	raw    *rawData
	inputs map[string]float64
}

// peerValues resolves metric values for peer councils from their own stored
// data, loaded once per peer. Peers contribute direct and derived figures
// only; estimation never recurses.
func (b *Builder) peerValues() estimate.ValueFunc {
	cache := make(map[string]*peerData)
	return func(ctx context.Context, peer model.Council, canonicalName string) (float64, bool) {
		def, ok := b.catalog.Lookup(canonicalName)
		if !ok {
			return 0, false
		}

		pd, cached := cache[peer.ID]
		if !cached {
			raw, err := b.loadRaw(ctx, peer.ID)
			if err != nil {
				zap.L().Warn("skipping peer with unreadable data",
					zap.String("council", peer.ID), zap.Error(err))
				cache[peer.ID] = &peerData{}
				return 0, false
			}
			pd = &peerData{raw: raw, inputs: normalizeInputs(raw.nums, peer)}
			cache[peer.ID] = pd
		}
		if pd.raw == nil {
			return 0, false
		}

		rawVal, _, ok := b.findRaw(def, pd.raw, peer.Region)
		if !ok {
			return 0, false
		}
		value, _ := b.catalog.Normalize(rawVal, canonicalName, pd.inputs)
		return value, true
	}
}

// uniqueData keeps the flat entries that fed no observation: numeric leaves
// whose value coincides with no matched raw value, and every text leaf.
func uniqueData(raw *rawData, observations map[string]model.Observation) []model.UniqueDatum {
	known := make(map[float64]struct{}, len(observations))
	for _, obs := range observations {
		if obs.RawValue != nil {
			known[*obs.RawValue] = struct{}{}
		}
	}

	out := make([]model.UniqueDatum, 0, len(raw.nums)+len(raw.texts))
	for _, key := range raw.numKeys {
		v := raw.nums[key]
		if _, taken := known[v]; taken {
			continue
		}
		value := v
		out = append(out, model.UniqueDatum{
			Key:      key,
			Value:    &value,
			Origin:   raw.origins[key],
			Category: inferCategory(key),
		})
	}
	for key, text := range raw.texts {
		out = append(out, model.UniqueDatum{
			Key:      key,
			Text:     text,
			Origin:   raw.origins[key],
			Category: inferCategory(key),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if len(out) == 0 {
		return nil
	}
	return out
}

// uniqueKeywords is checked in order; the first group with a keyword hit
// decides the category.
var uniqueKeywords = []struct {
	category model.UniqueCategory
	keywords []string
}{
	{model.UniqueEnvironmental, []string{"carbon", "emission", "environment", "sustainability"}},
	{model.UniqueInfrastructure, []string{"bike", "path", "park", "infrastructure", "road"}},
	{model.UniqueEconomic, []string{"economic", "business", "employment", "job"}},
	{model.UniqueCommunity, []string{"community", "engagement", "participation"}},
}

func inferCategory(key string) model.UniqueCategory {
	lower := strings.ToLower(key)
	for _, group := range uniqueKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.category
			}
		}
	}
	return model.UniquePerformance
}
