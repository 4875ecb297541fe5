// Package engine runs the alert pipeline: normalize, dedup, advisory
// fan-out, consensus, level calculation, safety gating, then delivery.
// One alert's failure never prevents the next from being processed.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"tv-consensus-bot/internal/advisor"
	"tv-consensus-bot/internal/consensus"
	"tv-consensus-bot/internal/dedup"
	"tv-consensus-bot/internal/delivery"
	"tv-consensus-bot/internal/extract"
	"tv-consensus-bot/internal/levels"
	"tv-consensus-bot/internal/logger"
	"tv-consensus-bot/internal/marketnews"
	"tv-consensus-bot/internal/metrics"
	"tv-consensus-bot/internal/normalize"
	"tv-consensus-bot/internal/safety"
	"tv-consensus-bot/internal/trace"
	"tv-consensus-bot/internal/types"
	"tv-consensus-bot/internal/verdictlog"
)

// Options configures an Engine.
type Options struct {
	Advisors      []advisor.Advisor
	Store         dedup.Store
	Safety        *safety.Filter
	News          *marketnews.Service
	Notifier      delivery.Notifier
	Recorder      *metrics.Recorder
	VerdictLog    *verdictlog.Log
	CallTimeout   time.Duration // per-advisor deadline
	Budget        time.Duration // whole-batch deadline
	BatchesPerMin int           // advisory batch rate limit, 0 disables
}

// Engine processes one alert at a time end to end. It is safe for
// concurrent use; all mutable state lives in the injected stores.
type Engine struct {
	advisors []advisor.Advisor
	store    dedup.Store
	safety   *safety.Filter
	news     *marketnews.Service
	notifier delivery.Notifier
	recorder *metrics.Recorder
	vlog     *verdictlog.Log

	callTimeout time.Duration
	budget      time.Duration
	limiter     *rate.Limiter
}

func New(opts Options) *Engine {
	e := &Engine{
		advisors:    opts.Advisors,
		store:       opts.Store,
		safety:      opts.Safety,
		news:        opts.News,
		notifier:    opts.Notifier,
		recorder:    opts.Recorder,
		vlog:        opts.VerdictLog,
		callTimeout: opts.CallTimeout,
		budget:      opts.Budget,
	}
	if e.callTimeout <= 0 {
		e.callTimeout = 20 * time.Second
	}
	if e.budget <= 0 {
		e.budget = 30 * time.Second
	}
	if opts.BatchesPerMin > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(float64(opts.BatchesPerMin)/60.0), opts.BatchesPerMin)
	}
	return e
}

// HandleAlert processes one raw webhook payload and always returns a
// result; panics in the pipeline are absorbed into a NoTrade verdict.
func (e *Engine) HandleAlert(ctx context.Context, raw []byte) (result *types.ProcessResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Alert processing panicked", "panic", fmt.Sprint(r))
			result = &types.ProcessResult{
				Status: types.StatusOK,
				Verdict: &types.Verdict{
					Decision:       types.VerdictNoTrade,
					ConsensusLabel: "internal error",
					SafetyPassed:   true,
				},
			}
		}
	}()

	now := time.Now()

	snap, rejection := normalize.Parse(raw, now)
	if rejection != nil {
		logger.Info(ctx, "Alert ignored", "reason", rejection.Reason)
		e.recorder.RecordAlert(string(types.StatusIgnored))
		return &types.ProcessResult{Status: types.StatusIgnored, Reason: rejection.Reason}
	}

	ctx, span := trace.StartAlertSpan(ctx, snap.Symbol, string(snap.Timeframe))
	defer span.End()

	accepted, err := e.store.ShouldProcess(ctx, dedup.KeyFor(snap), now)
	if err != nil {
		// A broken dedup backend must not silence alerts; process and
		// accept the risk of an occasional double fire.
		logger.ErrorWithErr(ctx, "Dedup store unavailable, processing anyway", err,
			"symbol", snap.Symbol)
		accepted = true
	}
	if !accepted {
		logger.Info(ctx, "Duplicate alert suppressed",
			"symbol", snap.Symbol, "timeframe", snap.Timeframe, "barTime", snap.BarTime)
		e.recorder.RecordAlert(string(types.StatusDuplicate))
		e.recorder.RecordDedupSuppressed()
		return &types.ProcessResult{Status: types.StatusDuplicate, Reason: "already processed", Snapshot: snap}
	}

	opinions := e.gatherOpinions(ctx, snap)
	verdict := e.decide(ctx, snap, opinions)

	logger.Verdict(ctx, snap.Symbol, string(snap.Timeframe),
		string(verdict.Decision), verdict.ConsensusLabel, verdict.SafetyPassed)
	e.recorder.RecordAlert(string(types.StatusOK))
	e.recorder.RecordVerdict(string(verdict.Decision), verdict.SafetyPassed)

	if e.vlog != nil {
		if err := e.vlog.Append(snap, verdict); err != nil {
			logger.ErrorWithErr(ctx, "Failed to append verdict log", err, "symbol", snap.Symbol)
		}
	}
	e.deliver(ctx, snap, verdict)

	return &types.ProcessResult{
		Status:   types.StatusOK,
		Snapshot: snap,
		Opinions: opinions,
		Verdict:  verdict,
	}
}

// gatherOpinions fans the prompt out to every advisor with a per-call
// timeout under a shared batch budget, then fans the opinions back in.
// A source that misses the budget contributes an Unavailable opinion;
// no opinion is ever discarded, no call blocks forever.
func (e *Engine) gatherOpinions(ctx context.Context, snap *types.AlertSnapshot) []types.Opinion {
	if len(e.advisors) == 0 {
		return nil
	}

	budgetCtx, cancel := context.WithTimeout(ctx, e.budget)
	defer cancel()

	if e.limiter != nil {
		if err := e.limiter.Wait(budgetCtx); err != nil {
			logger.Warn(ctx, "Advisory batch rate limit exhausted the budget", "error", err)
			return e.allUnavailable("advisory rate limit exceeded")
		}
	}

	var headlines []string
	if e.news != nil {
		headlines = e.news.Titles(budgetCtx, snap.Symbol)
	}
	prompt := advisor.BuildPrompt(snap, headlines)

	type sourceResult struct {
		index   int
		opinion types.Opinion
	}
	results := make(chan sourceResult, len(e.advisors))

	for i, adv := range e.advisors {
		go func(i int, adv advisor.Advisor) {
			op := e.callAdvisor(budgetCtx, adv, prompt)
			results <- sourceResult{index: i, opinion: op}
		}(i, adv)
	}

	opinions := make([]types.Opinion, len(e.advisors))
	received := make([]bool, len(e.advisors))
	pending := len(e.advisors)
	for pending > 0 {
		select {
		case r := <-results:
			opinions[r.index] = r.opinion
			received[r.index] = true
			pending--
		case <-budgetCtx.Done():
			// Stragglers become Unavailable; their goroutines unblock
			// on the shared context and drain into the buffered channel.
			for i := range opinions {
				if !received[i] {
					opinions[i] = types.Opinion{
						SourceID: e.advisors[i].ID(),
						Decision: types.OpinionUnavailable,
						Reason:   "advisory budget exhausted",
					}
				}
			}
			return opinions
		}
	}
	return opinions
}

// callAdvisor runs one advisory call and absorbs every failure mode
// into an Opinion.
func (e *Engine) callAdvisor(ctx context.Context, adv advisor.Advisor, prompt string) (op types.Opinion) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Advisor panicked", "source", adv.ID(), "panic", fmt.Sprint(r))
			op = types.Opinion{SourceID: adv.ID(), Decision: types.OpinionError, Reason: "internal advisor failure"}
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	start := time.Now()
	text, err := adv.Analyze(callCtx, prompt)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		op = extract.Extract(adv.ID(), "", advisor.ClassifyFailure(err), err.Error())
	} else {
		op = extract.Extract(adv.ID(), text, extract.OutcomeOK, "")
	}
	e.recorder.RecordAdvisory(adv.ID(), string(op.Decision), elapsed)
	return op
}

func (e *Engine) allUnavailable(reason string) []types.Opinion {
	opinions := make([]types.Opinion, len(e.advisors))
	for i, adv := range e.advisors {
		opinions[i] = types.Opinion{SourceID: adv.ID(), Decision: types.OpinionUnavailable, Reason: reason}
	}
	return opinions
}

// decide reconciles the opinions into the final verdict: consensus,
// then level filling, then the safety gate. A safety veto keeps the
// agreed direction in the verdict and marks it non-actionable.
func (e *Engine) decide(ctx context.Context, snap *types.AlertSnapshot, opinions []types.Opinion) *types.Verdict {
	result := consensus.Resolve(opinions)

	if result.Decision == types.VerdictNoTrade {
		return &types.Verdict{
			Decision:       types.VerdictNoTrade,
			ConsensusLabel: result.Label,
			SafetyPassed:   true,
			Sources:        result.Sources,
		}
	}

	atr, atrPresent := snap.ATR()
	plan, ok := levels.Fill(result.Decision, result.Chosen, snap.Close, atr, atrPresent)
	if !ok {
		logger.Info(ctx, "Trade degraded to no-trade", "symbol", snap.Symbol, "reason", levels.ReasonNoVolatility)
		return &types.Verdict{
			Decision:       types.VerdictNoTrade,
			ConsensusLabel: levels.ReasonNoVolatility,
			SafetyPassed:   true,
			Sources:        result.Sources,
		}
	}

	passed, reason := e.safety.Check(snap, result.Decision, plan.Entry, plan.TakeProfit, plan.StopLoss)
	return &types.Verdict{
		Decision:       result.Decision,
		Entry:          types.Float(plan.Entry),
		TakeProfit:     types.Float(plan.TakeProfit),
		StopLoss:       types.Float(plan.StopLoss),
		ConsensusLabel: result.Label,
		SafetyPassed:   passed,
		SafetyReason:   reason,
		Sources:        result.Sources,
	}
}

// deliver always sends something, verdict or no-trade notice alike.
func (e *Engine) deliver(ctx context.Context, snap *types.AlertSnapshot, verdict *types.Verdict) {
	if e.notifier == nil {
		return
	}
	msg := delivery.Render(snap, verdict)
	if err := e.notifier.Notify(ctx, msg); err != nil {
		logger.ErrorWithErr(ctx, "Failed to deliver verdict", err, "symbol", snap.Symbol)
		e.recorder.RecordDeliveryError()
	}
}
