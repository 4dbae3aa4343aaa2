package consensus

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/quorum/internal/domain"
	"github.com/vadiminshakov/quorum/internal/storage/history"
	"github.com/vadiminshakov/quorum/pkg/retrier"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, cfg domain.WeightConfig, store HistoryStore, opts ...Option) *Engine {
	t.Helper()

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	e, err := NewEngine(zap.NewNop(), cfg, store, opts...)
	require.NoError(t, err)
	return e
}

func neutralInput() domain.FeatureVector {
	return domain.FeatureVector{SentimentIndex: 50, Volatility: 0.1}
}

func bullishInput() domain.FeatureVector {
	return domain.FeatureVector{
		SentimentIndex:    85,
		Momentum:          0.8,
		Volatility:        0.15,
		OnchainChangePct:  15,
		VolumeChangePct:   40,
		NarrativeStrength: 0.85,
		MemeVelocity:      0.5,
		SystemHealth:      0.95,
		AgentSyncScore:    0.85,
	}
}

func randomInput(rng *rand.Rand) domain.FeatureVector {
	return domain.FeatureVector{
		SentimentIndex:    rng.Float64() * 100,
		Volatility:        rng.Float64(),
		Momentum:          rng.Float64()*2 - 1,
		OnchainChangePct:  rng.Float64()*80 - 40,
		VolumeChangePct:   rng.Float64()*200 - 50,
		NarrativeStrength: rng.Float64(),
		MemeVelocity:      rng.Float64(),
		ThreatFlags: domain.ThreatFlags{
			ThreatIndicators:   rng.Intn(6) == 0,
			SuspiciousPatterns: rng.Intn(6) == 0,
		},
		FailedLogins:       rng.Intn(30),
		UnusualRequests:    rng.Intn(150),
		NewDependencies:    rng.Intn(5),
		SystemHealth:       rng.Float64(),
		AgentSyncScore:     rng.Float64(),
		CriticalErrorCount: rng.Intn(7),
	}
}

func TestEngine_NeutralScenario(t *testing.T) {
	e := newTestEngine(t, domain.DefaultWeightConfig(), nil)

	rec := e.Decide(neutralInput())

	assert.Equal(t, domain.ActionHold, rec.Action)
	assert.False(t, rec.Vetoed)
	assert.Equal(t, domain.RegimeEquilibrium, rec.RegimeSnapshot.CooperationRegime)
	assert.Zero(t, rec.SizeFraction)
	assert.Zero(t, rec.StopLoss)
	assert.NoError(t, rec.Validate())
}

func TestEngine_BreachScenario(t *testing.T) {
	e := newTestEngine(t, domain.DefaultWeightConfig(), nil)

	fv := domain.FeatureVector{
		SentimentIndex: 90,
		Momentum:       0.9,
		ThreatFlags:    domain.ThreatFlags{Breach: true},
	}
	rec := e.Decide(fv)

	assert.Equal(t, domain.ActionEmergencyExit, rec.Action)
	assert.Equal(t, 1.0, rec.SizeFraction)
	assert.Equal(t, 0.95, rec.Confidence)
	assert.True(t, rec.Vetoed)
	assert.Contains(t, rec.ReasoningTrail[len(rec.ReasoningTrail)-1], "security veto")
	assert.NoError(t, rec.Validate())
}

func TestEngine_StrongBullishScenario(t *testing.T) {
	cfg := domain.DefaultWeightConfig()
	e := newTestEngine(t, cfg, nil)

	rec := e.Evaluate(bullishInput())

	require.Equal(t, domain.ActionStrongBuy, rec.Action)
	assert.Equal(t, domain.RegimeCooperative, rec.RegimeSnapshot.CooperationRegime)

	baseline := cfg.Clone()
	baseline.RegimeMultipliers[domain.RegimeCooperative] = baseline.Multiplier(domain.RegimeEquilibrium)
	base := newTestEngine(t, baseline, nil).Evaluate(bullishInput())

	require.Equal(t, domain.ActionStrongBuy, base.Action)
	assert.Greater(t, rec.SizeFraction, base.SizeFraction)
	assert.InDelta(t, 1.25, rec.SizeFraction/base.SizeFraction, 1e-9)
	assert.LessOrEqual(t, rec.SizeFraction, cfg.MaxSize)
	assert.Greater(t, rec.StopLoss, 0.0)
	assert.InDelta(t, rec.StopLoss*cfg.RewardRisk, rec.TakeProfit, 1e-12)
}

func TestEngine_VetoDominance(t *testing.T) {
	e := newTestEngine(t, domain.DefaultWeightConfig(), nil)
	rng := rand.New(rand.NewSource(7))

	flags := []domain.ThreatFlags{
		{Breach: true},
		{ActiveAttack: true},
		{Compromised: true},
	}

	for i := 0; i < 200; i++ {
		fv := bullishInput()
		if i%2 == 1 {
			fv = randomInput(rng)
		}
		fv.ThreatFlags = flags[i%len(flags)]

		rec := e.Evaluate(fv)
		require.Equal(t, domain.ActionEmergencyExit, rec.Action, "input %+v", fv)
		require.Equal(t, 1.0, rec.SizeFraction)
		require.True(t, rec.Vetoed)
	}
}

func TestEngine_VetoThresholdIsConfigurable(t *testing.T) {
	cfg := domain.DefaultWeightConfig()
	cfg.VetoThreshold = 5

	rec := newTestEngine(t, cfg, nil).Evaluate(domain.FeatureVector{
		SentimentIndex: 50,
		ThreatFlags:    domain.ThreatFlags{ActiveAttack: true},
	})

	assert.False(t, rec.Vetoed)
	assert.NotEqual(t, domain.ActionEmergencyExit, rec.Action)
}

func TestEngine_SizeClamping(t *testing.T) {
	cfg := domain.DefaultWeightConfig()
	for r := range cfg.RegimeMultipliers {
		cfg.RegimeMultipliers[r] = 5
	}
	e := newTestEngine(t, cfg, nil)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		rec := e.Evaluate(randomInput(rng))
		if rec.Vetoed {
			assert.Equal(t, 1.0, rec.SizeFraction)
			continue
		}
		require.GreaterOrEqual(t, rec.SizeFraction, 0.0)
		require.LessOrEqual(t, rec.SizeFraction, cfg.MaxSize)
		require.LessOrEqual(t, rec.Confidence, cfg.MaxConfidence)
		require.NoError(t, rec.Validate())
	}

	rec := e.Evaluate(bullishInput())
	assert.Equal(t, cfg.MaxSize, rec.SizeFraction)
	assert.Contains(t, rec.ReasoningTrail[len(rec.ReasoningTrail)-1], "clamped to max")
}

func TestEngine_CoherenceDampening(t *testing.T) {
	fv := bullishInput()
	fv.SystemHealth = 0.3

	cfg := domain.DefaultWeightConfig()
	noDamp := cfg.Clone()
	noDamp.CoherenceDampening = 1

	damped := newTestEngine(t, cfg, nil).Evaluate(fv)
	plain := newTestEngine(t, noDamp, nil).Evaluate(fv)

	require.Equal(t, damped.Action, plain.Action)
	require.Greater(t, plain.SizeFraction, 0.0)
	assert.InDelta(t, cfg.CoherenceDampening, damped.SizeFraction/plain.SizeFraction, 1e-9)

	vote, ok := damped.Vote(domain.PerspectiveCoherence)
	require.True(t, ok)
	assert.Equal(t, domain.CoherenceDegraded, vote.StateID)
}

func TestEngine_ReasoningTrailOrder(t *testing.T) {
	rec := newTestEngine(t, domain.DefaultWeightConfig(), nil).Evaluate(bullishInput())

	require.Len(t, rec.ReasoningTrail, 8)
	for i, id := range domain.Perspectives {
		assert.True(t, strings.HasPrefix(rec.ReasoningTrail[i], string(id)+":"), rec.ReasoningTrail[i])
	}
	assert.True(t, strings.HasPrefix(rec.ReasoningTrail[4], "net score"))
	assert.True(t, strings.HasPrefix(rec.ReasoningTrail[5], "uncertainty"))
	assert.True(t, strings.HasPrefix(rec.ReasoningTrail[6], "regime COOPERATIVE"))
	assert.True(t, strings.HasPrefix(rec.ReasoningTrail[7], "coherence HIGH"))
}

func TestEngine_Determinism(t *testing.T) {
	calls := 0
	clock := func() time.Time {
		calls++
		return fixedNow.Add(time.Duration(calls) * time.Second)
	}
	e := newTestEngine(t, domain.DefaultWeightConfig(), nil, WithClock(clock))
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		fv := randomInput(rng)
		a, b := e.Evaluate(fv), e.Evaluate(fv)

		require.NotEqual(t, a.Timestamp, b.Timestamp)
		if diff := cmp.Diff(a, b, cmpopts.IgnoreFields(domain.DecisionRecord{}, "Timestamp")); diff != "" {
			t.Fatalf("decision differs for %+v (-first +second):\n%s", fv, diff)
		}
	}
}

func TestEngine_TierMapping(t *testing.T) {
	e := newTestEngine(t, domain.DefaultWeightConfig(), nil)

	tests := []struct {
		net  float64
		want domain.Action
	}{
		{1, domain.ActionStrongBuy},
		{0.41, domain.ActionStrongBuy},
		{0.4, domain.ActionBuy},
		{0.21, domain.ActionBuy},
		{0.2, domain.ActionHold},
		{0, domain.ActionHold},
		{-0.2, domain.ActionHold},
		{-0.21, domain.ActionSell},
		{-0.4, domain.ActionSell},
		{-0.41, domain.ActionStrongSell},
		{-1, domain.ActionStrongSell},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%+.2f", tt.net), func(t *testing.T) {
			action, conf, size := e.tier(tt.net)
			assert.Equal(t, tt.want, action)
			assert.GreaterOrEqual(t, conf, 0.0)
			assert.LessOrEqual(t, conf, 1.0)
			assert.GreaterOrEqual(t, size, 0.0)
		})
	}
}

func TestEngine_SizeScalesWithinTier(t *testing.T) {
	e := newTestEngine(t, domain.DefaultWeightConfig(), nil)

	_, loConf, loSize := e.tier(0.45)
	_, hiConf, hiSize := e.tier(0.9)
	assert.Greater(t, hiSize, loSize)
	assert.Greater(t, hiConf, loConf)

	_, loConf, loSize = e.tier(-0.25)
	_, hiConf, hiSize = e.tier(-0.35)
	assert.Greater(t, hiSize, loSize)
	assert.Greater(t, hiConf, loConf)

	_, centre, _ := e.tier(0)
	_, edge, _ := e.tier(0.19)
	assert.Greater(t, centre, edge)
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := domain.DefaultWeightConfig()
	cfg.Weights = map[domain.PerspectiveID]float64{}

	_, err := NewEngine(zap.NewNop(), cfg, nil)
	assert.Error(t, err)
}

func TestNewEngine_CopiesConfig(t *testing.T) {
	cfg := domain.DefaultWeightConfig()
	e := newTestEngine(t, cfg, nil)

	before := e.Evaluate(bullishInput())
	cfg.Weights[domain.PerspectiveMarket] = 0
	cfg.RegimeMultipliers[domain.RegimeCooperative] = 0
	after := e.Evaluate(bullishInput())

	assert.Equal(t, before, after)
	assert.Equal(t, 0.35, e.Config().Weights[domain.PerspectiveMarket])
}

type failingStore struct {
	mu       sync.Mutex
	attempts int
}

func (s *failingStore) Append(domain.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return errors.New("read-only file system")
}

func (s *failingStore) List() ([]domain.DecisionRecord, error) {
	return nil, nil
}

func TestEngine_AppendFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := &failingStore{}

	e, err := NewEngine(zap.New(core), domain.DefaultWeightConfig(), store,
		WithRetrier(retrier.New(retrier.WithMaxRetries(2), retrier.WithInitialInterval(time.Millisecond))))
	require.NoError(t, err)

	rec := e.Decide(neutralInput())

	assert.NoError(t, rec.Validate())
	assert.Equal(t, domain.ActionHold, rec.Action)
	assert.Equal(t, 3, store.attempts)
	require.Equal(t, 1, logs.FilterMessage("failed to append decision to history").Len())
}

func TestEngine_HistoryBound(t *testing.T) {
	const limit, extra = 10, 7

	store := history.NewMemory(limit)
	e := newTestEngine(t, domain.DefaultWeightConfig(), store)
	rng := rand.New(rand.NewSource(3))

	var all []domain.DecisionRecord
	for i := 0; i < limit+extra; i++ {
		all = append(all, e.Decide(randomInput(rng)))
	}

	got, err := e.History()
	require.NoError(t, err)
	require.Len(t, got, limit)
	assert.Equal(t, all[extra:], got)
}

func TestEngine_ConcurrentDecide(t *testing.T) {
	defer goleak.VerifyNone(t)

	const limit = 25

	store := history.NewMemory(limit)
	e := newTestEngine(t, domain.DefaultWeightConfig(), store)

	var g errgroup.Group
	g.SetLimit(8)
	for i := 0; i < 200; i++ {
		seed := int64(i)
		g.Go(func() error {
			rec := e.Decide(randomInput(rand.New(rand.NewSource(seed))))
			return rec.Validate()
		})
	}
	require.NoError(t, g.Wait())

	got, err := e.History()
	require.NoError(t, err)
	assert.Len(t, got, limit)
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []domain.DecisionRecord
}

func (p *recordingPublisher) Publish(rec domain.DecisionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
}

func TestEngine_PublishesInHistoryOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := history.NewMemory(100)
	pub := &recordingPublisher{}
	e := newTestEngine(t, domain.DefaultWeightConfig(), store, WithPublisher(pub))

	var g errgroup.Group
	g.SetLimit(4)
	for i := 0; i < 40; i++ {
		seed := int64(i)
		g.Go(func() error {
			e.Decide(randomInput(rand.New(rand.NewSource(seed))))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	stored, err := e.History()
	require.NoError(t, err)
	require.Len(t, pub.records, len(stored))
	if diff := cmp.Diff(stored, pub.records); diff != "" {
		t.Fatalf("published order differs from history (-history +published):\n%s", diff)
	}
}

func TestEngine_EvaluateDoesNotPublish(t *testing.T) {
	pub := &recordingPublisher{}
	e := newTestEngine(t, domain.DefaultWeightConfig(), nil, WithPublisher(pub))

	e.Evaluate(neutralInput())
	assert.Empty(t, pub.records)

	e.Decide(neutralInput())
	assert.Len(t, pub.records, 1)
}
