// Package consensus blends the four perspective classifications into a single decision.
package consensus

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/quorum/internal/domain"
	"github.com/vadiminshakov/quorum/internal/services/classifier"
	"github.com/vadiminshakov/quorum/internal/services/regime"
	"github.com/vadiminshakov/quorum/pkg/retrier"
)

// HistoryStore is the bounded append-only decision log the engine writes to.
type HistoryStore interface {
	Append(rec domain.DecisionRecord) error
	List() ([]domain.DecisionRecord, error)
}

// Publisher receives every decision after it has been recorded.
type Publisher interface {
	Publish(rec domain.DecisionRecord)
}

// Engine folds classifier votes into decisions. Evaluate is safe for concurrent use;
// Decide serialises history appends, so history order is completion order.
type Engine struct {
	logger    *zap.Logger
	cfg       domain.WeightConfig
	regime    *regime.Engine
	store     HistoryStore
	publisher Publisher
	retrier   *retrier.Retrier
	now       func() time.Time

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for decision timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRetrier overrides the retrier used for history appends.
func WithRetrier(r *retrier.Retrier) Option {
	return func(e *Engine) {
		e.retrier = r
	}
}

// WithPublisher fans decisions out to p in history order.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithPolicy replaces the regime policy.
func WithPolicy(p regime.Policy) Option {
	return func(e *Engine) {
		e.regime = regime.NewEngine(p)
	}
}

// NewEngine validates and copies cfg. A nil store keeps no history.
func NewEngine(logger *zap.Logger, cfg domain.WeightConfig, store HistoryStore, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid weight config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		logger: logger,
		cfg:    cfg.Clone(),
		regime: regime.NewEngine(regime.DefaultPolicy()),
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.retrier == nil {
		e.retrier = retrier.New(retrier.WithOnRetry(func(attempt int, err error) {
			e.logger.Debug("retrying history append", zap.Int("attempt", attempt), zap.Error(err))
		}))
	}

	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() domain.WeightConfig {
	return e.cfg.Clone()
}

// PolicyVersion returns the version of the regime policy in use.
func (e *Engine) PolicyVersion() string {
	return e.regime.Policy().Version
}

// Decide evaluates fv and appends the result to history.
// Append failures are logged; the returned record is valid either way.
func (e *Engine) Decide(fv domain.FeatureVector) domain.DecisionRecord {
	rec := e.Evaluate(fv)

	e.logger.Info("decision",
		zap.String("action", rec.Action.String()),
		zap.Float64("confidence", rec.Confidence),
		zap.Float64("size", rec.SizeFraction),
		zap.Float64("net", rec.NetScore),
		zap.Bool("vetoed", rec.Vetoed),
		zap.String("regime", string(rec.RegimeSnapshot.CooperationRegime)))

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store != nil {
		err := e.retrier.Do(context.Background(), func(context.Context) error {
			return e.store.Append(rec.Clone())
		})
		if err != nil {
			e.logger.Warn("failed to append decision to history", zap.Error(err))
		}
	}
	if e.publisher != nil {
		e.publisher.Publish(rec.Clone())
	}

	return rec
}

// History lists retained decisions, most recent last.
func (e *Engine) History() ([]domain.DecisionRecord, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.List()
}

// Evaluate runs regime derivation, classification and blending without touching history.
func (e *Engine) Evaluate(fv domain.FeatureVector) domain.DecisionRecord {
	fv = fv.Clamp()
	metrics := e.regime.Derive(fv)
	results := classifier.ClassifyAll(fv, metrics)

	trail := make([]string, 0, len(results)+5)
	votes := make([]domain.ConsensusVote, 0, len(results))
	for _, res := range results {
		v := Vote(res, e.cfg.Weights[res.PerspectiveID])
		votes = append(votes, v)
		trail = append(trail, voteLine(res, v))
	}

	bull, bear := tally(votes, e.cfg.TotalWeight())
	net := bull - bear

	rec := domain.DecisionRecord{
		Timestamp:      e.now().UTC(),
		NetScore:       net,
		VotesSnapshot:  votes,
		RegimeSnapshot: metrics.Snapshot(),
	}

	threat := resultFor(results, domain.PerspectiveThreat)
	if threat.Severity >= e.cfg.VetoThreshold {
		rec.Action = domain.ActionEmergencyExit
		rec.Confidence = e.cfg.VetoConfidence
		rec.SizeFraction = 1.0
		rec.MaxSize = 1.0
		rec.Vetoed = true
		rec.ReasoningTrail = append(trail, fmt.Sprintf(
			"security veto: threat severity %d (%s) >= %d, full exit",
			threat.Severity, threat.StateID, e.cfg.VetoThreshold))
		return rec
	}

	action, conf, size := e.tier(net)
	trail = append(trail, fmt.Sprintf("net score %+.3f (bullish %.3f, bearish %.3f) -> %s", net, bull, bear, action))

	discount := 1 - e.cfg.UncertaintyDiscount*metrics.Uncertainty.Value
	conf = clamp(conf*discount, 0, e.cfg.MaxConfidence)
	trail = append(trail, fmt.Sprintf("uncertainty %s (%.2f): confidence x%.2f",
		metrics.Uncertainty.Band, metrics.Uncertainty.Value, discount))

	mult := e.cfg.Multiplier(metrics.CooperationRegime)
	size *= mult
	trail = append(trail, fmt.Sprintf("regime %s: size x%.2f", metrics.CooperationRegime, mult))

	coherence := resultFor(results, domain.PerspectiveCoherence)
	if coherence.Coherence == domain.CoherenceLow {
		size *= e.cfg.CoherenceDampening
		trail = append(trail, fmt.Sprintf("coherence LOW (%s): size x%.2f", coherence.StateID, e.cfg.CoherenceDampening))
	} else {
		trail = append(trail, fmt.Sprintf("coherence %s (%s): no dampening", coherenceLabel(coherence.Coherence), coherence.StateID))
	}

	if size > e.cfg.MaxSize {
		trail = append(trail, fmt.Sprintf("size %.4f clamped to max %.4f", size, e.cfg.MaxSize))
	}
	size = clamp(size, 0, e.cfg.MaxSize)

	rec.Action = action
	rec.Confidence = conf
	rec.SizeFraction = size
	rec.MaxSize = e.cfg.MaxSize
	if action != domain.ActionHold {
		rec.StopLoss = e.cfg.StopLossBase * (1 + fv.Volatility)
		rec.TakeProfit = rec.StopLoss * e.cfg.RewardRisk
	}
	rec.ReasoningTrail = trail

	return rec
}

// tier maps net to an action and interpolates confidence and size inside the tier.
func (e *Engine) tier(net float64) (domain.Action, float64, float64) {
	th := e.cfg.Thresholds

	switch {
	case net > th.StrongBuy:
		t := ratio(net-th.StrongBuy, 1-th.StrongBuy)
		return domain.ActionStrongBuy, e.cfg.Strong.Confidence.Lerp(t), e.cfg.Strong.Size.Lerp(t)
	case net > th.Buy:
		t := ratio(net-th.Buy, th.StrongBuy-th.Buy)
		return domain.ActionBuy, e.cfg.Normal.Confidence.Lerp(t), e.cfg.Normal.Size.Lerp(t)
	case net < th.StrongSell:
		t := ratio(th.StrongSell-net, th.StrongSell+1)
		return domain.ActionStrongSell, e.cfg.Strong.Confidence.Lerp(t), e.cfg.Strong.Size.Lerp(t)
	case net < th.Sell:
		t := ratio(th.Sell-net, th.Sell-th.StrongSell)
		return domain.ActionSell, e.cfg.Normal.Confidence.Lerp(t), e.cfg.Normal.Size.Lerp(t)
	default:
		// confidence in HOLD falls as net approaches either edge
		var t float64
		if net >= 0 {
			t = ratio(net, th.Buy)
		} else {
			t = ratio(-net, -th.Sell)
		}
		return domain.ActionHold, e.cfg.Hold.Confidence.Lerp(1 - t), e.cfg.Hold.Size.Lerp(t)
	}
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 1
	}
	return domain.Clamp01(num / den)
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}

func resultFor(results []domain.ClassificationResult, id domain.PerspectiveID) domain.ClassificationResult {
	for _, r := range results {
		if r.PerspectiveID == id {
			return r
		}
	}
	return domain.ClassificationResult{PerspectiveID: id}
}

func voteLine(res domain.ClassificationResult, v domain.ConsensusVote) string {
	line := fmt.Sprintf("%s: %s -> %s %.2f (weight %.2f)", res.PerspectiveID, res.StateID, v.Direction, v.Magnitude, v.Weight)
	if res.Fallback {
		line += " [regime fallback]"
	}
	return line
}

func coherenceLabel(c domain.CoherenceLevel) string {
	if c == domain.CoherenceUnknown {
		return "UNKNOWN"
	}
	return string(c)
}
