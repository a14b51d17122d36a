package backtest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// Skip reasons reported to the Recorder
const (
	SkipDegenerateSize    = "degenerate_size"
	SkipInsufficientFunds = "insufficient_funds"
)

// Recorder receives run events, typically to export them as metrics
type Recorder interface {
	RecordTrade(kind, strategy string)
	RecordSkip(reason string)
	RecordRun(strategy string, duration time.Duration, finalEquity float64, err error)
}

// Option configures a BacktestEngine
type Option func(*BacktestEngine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *BacktestEngine) {
		e.logger = logger
	}
}

// WithRecorder attaches a run event recorder
func WithRecorder(recorder Recorder) Option {
	return func(e *BacktestEngine) {
		e.recorder = recorder
	}
}

// BacktestEngine simulates a long-only strategy bar by bar. A signal observed
// on bar i-1 executes at the open of bar i.
//
// The engine keeps no state between runs, so one engine may be reused, but a
// single engine must not run concurrently with itself when a Recorder that is
// not goroutine-safe is attached.
type BacktestEngine struct {
	config     RunConfig
	sizer      risk.Sizer
	classifier regime.Classifier
	logger     zerolog.Logger
	recorder   Recorder
}

// NewEngine creates a new backtest engine. A nil sizer falls back to the ATR
// sizer; a nil classifier means single-strategy mode.
func NewEngine(cfg RunConfig, sizer risk.Sizer, classifier regime.Classifier, opts ...Option) *BacktestEngine {
	if sizer == nil {
		sizer = risk.NewATRSizer()
	}

	e := &BacktestEngine{
		config:     cfg,
		sizer:      sizer,
		classifier: classifier,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the run configuration
func (e *BacktestEngine) Config() RunConfig {
	return e.config
}

// runState is the mutable account state of one run
type runState struct {
	cash        float64
	size        float64
	entry       *Trade
	trades      []Trade
	roundTrips  []RoundTrip
	equityCurve []EquityPoint
	skipped     SkipCounts
}

// Run simulates the dataset against the signal sources, keyed by regime label.
// Configuration problems, including an unresolvable regime with no "default"
// source, abort the run before the first bar is simulated.
func (e *BacktestEngine) Run(ds *types.Dataset, sources map[regime.Label]strategy.SignalGenerator) (*BacktestResults, error) {
	started := time.Now()

	results, err := e.run(ds, sources)

	if e.recorder != nil {
		name, final := "", 0.0
		if results != nil {
			name, final = results.Strategy, results.EndBalance
		}
		e.recorder.RecordRun(name, time.Since(started), final, err)
	}
	if err != nil {
		e.logger.Error().Err(err).Msg("backtest aborted")
		return nil, err
	}
	return results, nil
}

func (e *BacktestEngine) run(ds *types.Dataset, sources map[regime.Label]strategy.SignalGenerator) (*BacktestResults, error) {
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, errors.NewDataError("engine", "run", errors.ErrEmptyDataset)
	}
	volatility, ok := ds.Column(e.config.volatilityColumn())
	if !ok {
		return nil, errors.NewDataError("engine", "run",
			fmt.Errorf("volatility column %q: %w", e.config.volatilityColumn(), errors.ErrMissingColumn))
	}

	plan, err := e.plan(ds, sources)
	if err != nil {
		return nil, err
	}

	bars := ds.Bars()
	n := len(bars)
	rate := e.config.CommissionRate
	slip := e.config.SlippageRate

	state := &runState{
		cash:        e.config.InitialCapital,
		equityCurve: make([]EquityPoint, 0, n),
	}
	state.equityCurve = append(state.equityCurve, EquityPoint{
		Timestamp: bars[0].Timestamp,
		Equity:    e.config.InitialCapital,
		Cash:      e.config.InitialCapital,
		Close:     bars[0].Close,
	})

	for i := 1; i < n; i++ {
		bar := bars[i]
		signal, source := plan.signalAt(i - 1)

		switch {
		case signal == strategy.SignalEnter && state.size == 0:
			size, stop := e.sizer.SizeAndStop(state.cash, e.config.Risk.RiskFraction, bar.Open, volatility[i-1], e.config.Risk.StopMultiplier)
			if !(size > 0) {
				state.skipped.DegenerateSize++
				e.skip(SkipDegenerateSize, i, bar)
				break
			}

			executed := bar.Open * (1 + slip)
			value := size * executed
			commission := value * rate
			if state.cash < value+commission {
				state.skipped.InsufficientFunds++
				e.skip(SkipInsufficientFunds, i, bar)
				break
			}

			state.cash -= value + commission
			state.size = size
			trade := Trade{
				Kind:          TradeBuy,
				BarIndex:      i,
				Timestamp:     bar.Timestamp,
				MarketPrice:   bar.Open,
				ExecutedPrice: executed,
				Size:          size,
				Value:         value,
				Commission:    commission,
				StopPrice:     stop,
				Strategy:      source.name,
				Regime:        source.label,
			}
			state.trades = append(state.trades, trade)
			entry := trade
			state.entry = &entry
			e.filled(trade, state.cash)

		case signal == strategy.SignalExit && state.size > 0:
			executed := bar.Open * (1 - slip)
			value := state.size * executed
			commission := value * rate

			state.cash += value - commission
			trade := Trade{
				Kind:          TradeSell,
				BarIndex:      i,
				Timestamp:     bar.Timestamp,
				MarketPrice:   bar.Open,
				ExecutedPrice: executed,
				Size:          state.size,
				Value:         value,
				Commission:    commission,
				Strategy:      source.name,
				Regime:        source.label,
			}
			state.trades = append(state.trades, trade)
			state.roundTrips = append(state.roundTrips, newRoundTrip(*state.entry, trade))
			state.size = 0
			state.entry = nil
			e.filled(trade, state.cash)
		}

		positionValue := state.size * bar.Close
		equity := state.cash + positionValue
		exposure := 0.0
		if equity > 0 {
			exposure = positionValue / equity
		}
		state.equityCurve = append(state.equityCurve, EquityPoint{
			Timestamp:    bar.Timestamp,
			Equity:       equity,
			Cash:         state.cash,
			PositionSize: state.size,
			Close:        bar.Close,
			Exposure:     exposure,
		})
	}

	results := &BacktestResults{
		StartBalance:  e.config.InitialCapital,
		EndBalance:    state.equityCurve[len(state.equityCurve)-1].Equity,
		FinalCash:     state.cash,
		EquityCurve:   state.equityCurve,
		Trades:        state.trades,
		RoundTrips:    state.roundTrips,
		Skipped:       state.skipped,
		Strategy:      plan.summaryName(),
		Regime:        plan.summaryLabel(),
		RegimeMode:    plan.mode,
		RegimeChanges: plan.changes,
	}
	if state.size > 0 && state.entry != nil {
		last := bars[n-1].Close
		results.OpenPosition = &OpenPosition{
			Entry:         *state.entry,
			MarkPrice:     last,
			MarketValue:   state.size * last,
			UnrealizedPnL: state.size*last - (state.entry.Value + state.entry.Commission),
		}
	}
	results.UpdateMetrics()

	e.logger.Info().
		Str("strategy", results.Strategy).
		Str("regime_mode", string(results.RegimeMode)).
		Int("bars", n).
		Int("trades", len(results.Trades)).
		Int("skipped", results.Skipped.Total()).
		Float64("final_equity", results.EndBalance).
		Float64("total_return", results.TotalReturn).
		Msg("backtest finished")

	return results, nil
}

func (e *BacktestEngine) skip(reason string, i int, bar types.OHLCV) {
	e.logger.Debug().
		Str("reason", reason).
		Int("bar", i).
		Time("timestamp", bar.Timestamp).
		Float64("open", bar.Open).
		Msg("entry skipped")
	if e.recorder != nil {
		e.recorder.RecordSkip(reason)
	}
}

func (e *BacktestEngine) filled(trade Trade, cash float64) {
	e.logger.Info().
		Str("kind", string(trade.Kind)).
		Int("bar", trade.BarIndex).
		Time("timestamp", trade.Timestamp).
		Float64("price", trade.ExecutedPrice).
		Float64("size", trade.Size).
		Float64("commission", trade.Commission).
		Float64("cash", cash).
		Str("strategy", trade.Strategy).
		Msg("trade executed")
	if e.recorder != nil {
		e.recorder.RecordTrade(string(trade.Kind), trade.Strategy)
	}
}

func newRoundTrip(entry, exit Trade) RoundTrip {
	cost := entry.Value + entry.Commission
	pnl := exit.Value - exit.Commission - cost
	rt := RoundTrip{
		Entry:      entry,
		Exit:       exit,
		PnL:        pnl,
		BarsHeld:   exit.BarIndex - entry.BarIndex,
		HoldPeriod: exit.Timestamp.Sub(entry.Timestamp),
	}
	if cost > 0 {
		rt.Return = pnl / cost
	}
	return rt
}

// activeSource is a resolved signal source
type activeSource struct {
	key     regime.Label // key in the sources map
	label   regime.Label // classifier output that selected it, empty without regime
	name    string
	signals strategy.SignalSeries
}

// signalPlan decides which signal is active on each bar
type signalPlan struct {
	mode    regime.Mode
	single  *activeSource
	perBar  []*activeSource // indexed by signal bar, per_bar mode only
	changes []regime.RegimeChange
}

func (p *signalPlan) signalAt(i int) (strategy.Signal, *activeSource) {
	src := p.single
	if p.perBar != nil {
		src = p.perBar[i]
	}
	return src.signals[i], src
}

func (p *signalPlan) summaryName() string {
	if p.single != nil {
		return p.single.name
	}
	names := make(map[string]struct{})
	for _, src := range p.perBar {
		if src != nil {
			names[src.name] = struct{}{}
		}
	}
	list := make([]string, 0, len(names))
	for name := range names {
		list = append(list, name)
	}
	sort.Strings(list)
	return strings.Join(list, ",")
}

func (p *signalPlan) summaryLabel() regime.Label {
	if p.single != nil {
		return p.single.label
	}
	return ""
}

// plan resolves signal sources and generates their series before the loop
func (e *BacktestEngine) plan(ds *types.Dataset, sources map[regime.Label]strategy.SignalGenerator) (*signalPlan, error) {
	if len(sources) == 0 {
		return nil, errors.NewConfigurationError("engine", "resolve_sources", "no signal sources configured")
	}

	mode := e.config.regimeMode()
	if e.classifier == nil {
		mode = regime.ModeOff
	}

	closes := ds.Closes()

	// a single source is always active; the classifier only labels the run
	if len(sources) == 1 {
		var key regime.Label
		for k := range sources {
			key = k
		}
		src, err := e.generate(ds, sources, key, "")
		if err != nil {
			return nil, err
		}

		plan := &signalPlan{mode: mode, single: src}
		switch mode {
		case regime.ModeOnce:
			src.label = e.classifier.Classify(closes)
		case regime.ModePerBar:
			plan.changes = regime.Changes(classifyEach(e.classifier, closes), timestamps(ds), closes)
		}
		return plan, nil
	}

	if mode == regime.ModeOff {
		src, err := e.generate(ds, sources, regime.Default, "")
		if err != nil {
			return nil, err
		}
		return &signalPlan{mode: mode, single: src}, nil
	}

	if mode == regime.ModeOnce {
		label := e.classifier.Classify(closes)
		key, err := resolveKey(sources, label)
		if err != nil {
			return nil, err
		}
		src, err := e.generate(ds, sources, key, label)
		if err != nil {
			return nil, err
		}
		e.logger.Info().Str("regime", label.String()).Str("strategy", src.name).Msg("regime resolved")
		return &signalPlan{mode: mode, single: src}, nil
	}

	// per_bar: the label for the signal on bar i only sees closes[0..i]
	labels := classifyEach(e.classifier, closes)

	// the last bar's label never drives a fill
	plan := &signalPlan{mode: mode, perBar: make([]*activeSource, len(labels))}
	byKey := make(map[regime.Label]*activeSource)
	for i, label := range labels[:len(labels)-1] {
		key, err := resolveKey(sources, label)
		if err != nil {
			return nil, err
		}
		src, ok := byKey[key]
		if !ok {
			if src, err = e.generate(ds, sources, key, ""); err != nil {
				return nil, err
			}
			byKey[key] = src
		}
		plan.perBar[i] = &activeSource{key: key, label: label, name: src.name, signals: src.signals}
	}
	plan.changes = regime.Changes(labels, timestamps(ds), closes)

	return plan, nil
}

func (e *BacktestEngine) generate(ds *types.Dataset, sources map[regime.Label]strategy.SignalGenerator, key, label regime.Label) (*activeSource, error) {
	gen, ok := sources[key]
	if !ok || gen == nil {
		return nil, errors.WrapError(errors.ErrNoDefaultStrategy, errors.ErrorCategoryConfiguration, "engine", "resolve_sources").
			WithContext("key", key.String())
	}

	signals, err := gen.Generate(ds)
	if err != nil {
		return nil, errors.NewStrategyError("engine", "generate_signals", err).WithContext("strategy", gen.Name())
	}
	if len(signals) != ds.Len() {
		return nil, errors.NewStrategyError("engine", "generate_signals",
			fmt.Errorf("%s returned %d signals for %d bars: %w", gen.Name(), len(signals), ds.Len(), errors.ErrSignalLength))
	}

	return &activeSource{key: key, label: label, name: gen.Name(), signals: signals}, nil
}

// resolveKey picks the source key for a label, falling back to "default"
func resolveKey(sources map[regime.Label]strategy.SignalGenerator, label regime.Label) (regime.Label, error) {
	if _, ok := sources[label]; ok {
		return label, nil
	}
	if _, ok := sources[regime.Default]; ok {
		return regime.Default, nil
	}
	return "", errors.WrapError(errors.ErrNoDefaultStrategy, errors.ErrorCategoryConfiguration, "engine", "resolve_sources").
		WithContext("regime", label.String())
}

func classifyEach(c regime.Classifier, closes []float64) []regime.Label {
	if sc, ok := c.(regime.SeriesClassifier); ok {
		return sc.ClassifyEach(closes)
	}
	labels := make([]regime.Label, len(closes))
	for i := range closes {
		labels[i] = c.Classify(closes[:i+1])
	}
	return labels
}

func timestamps(ds *types.Dataset) []time.Time {
	out := make([]time.Time, ds.Len())
	for i := range out {
		out[i] = ds.Timestamp(i)
	}
	return out
}
