package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tv-consensus-bot/internal/advisor"
	"tv-consensus-bot/internal/dedup"
	"tv-consensus-bot/internal/logger"
	"tv-consensus-bot/internal/safety"
	"tv-consensus-bot/internal/types"
)

func init() {
	_ = logger.InitWithConfig(logger.LogConfig{Level: "ERROR", Format: "text"})
}

// fakeAdvisor returns a canned response or error, optionally after a delay.
type fakeAdvisor struct {
	id    string
	text  string
	err   error
	delay time.Duration
}

func (f *fakeAdvisor) ID() string { return f.id }

func (f *fakeAdvisor) Analyze(ctx context.Context, prompt string) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

// captureNotifier records delivered messages.
type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *captureNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}

func defaultLimits() safety.Limits {
	return safety.Limits{RSIMin: 35, RSIMax: 75, MomentumFloor: -3, MaxReversalPoints: 30, MinRiskReward: 1.5}
}

func newTestEngine(advisors []advisor.Advisor, notifier *captureNotifier) *Engine {
	return New(Options{
		Advisors:    advisors,
		Store:       dedup.NewMemoryStore(5*time.Second, 24*time.Hour),
		Safety:      safety.New(defaultLimits()),
		Notifier:    notifier,
		CallTimeout: 200 * time.Millisecond,
		Budget:      500 * time.Millisecond,
	})
}

const buyText = "الصفقة: شراء، الدخول: 2650، الهدف: 2656، الستوب: 2647"

func alertPayload() []byte {
	return []byte(`{"SYMB":"XAUUSD","TF":"60","C":"2650","RSI":"55","ATR":"2.0","BAR_TIME":"1756382400"}`)
}

func TestMajorityBuyEndToEnd(t *testing.T) {
	notifier := &captureNotifier{}
	e := newTestEngine([]advisor.Advisor{
		&fakeAdvisor{id: "xai", text: buyText},
		&fakeAdvisor{id: "openai", text: buyText},
		&fakeAdvisor{id: "claude", text: "الصفقة: بيع"},
	}, notifier)

	res := e.HandleAlert(context.Background(), alertPayload())
	require.Equal(t, types.StatusOK, res.Status)
	require.NotNil(t, res.Verdict)

	assert.Equal(t, types.VerdictBuy, res.Verdict.Decision)
	assert.Equal(t, "majority (2/3)", res.Verdict.ConsensusLabel)
	assert.True(t, res.Verdict.SafetyPassed)
	require.NotNil(t, res.Verdict.Entry)
	assert.Equal(t, 2650.0, *res.Verdict.Entry)
	assert.Equal(t, []string{"xai", "openai"}, res.Verdict.Sources)
	assert.Contains(t, notifier.last(), "شراء")
}

func TestDuplicateBarSuppressed(t *testing.T) {
	notifier := &captureNotifier{}
	e := newTestEngine([]advisor.Advisor{&fakeAdvisor{id: "xai", text: buyText}}, notifier)

	first := e.HandleAlert(context.Background(), alertPayload())
	assert.Equal(t, types.StatusOK, first.Status)

	second := e.HandleAlert(context.Background(), alertPayload())
	assert.Equal(t, types.StatusDuplicate, second.Status)
	assert.Nil(t, second.Verdict)
	// No second delivery happened.
	assert.Len(t, notifier.messages, 1)
}

func TestRejectedPayloadIgnored(t *testing.T) {
	e := newTestEngine(nil, &captureNotifier{})

	res := e.HandleAlert(context.Background(), []byte(`{"SYMB":"XAUUSD","TF":"120","C":"2650"}`))
	assert.Equal(t, types.StatusIgnored, res.Status)
	assert.Equal(t, "unsupported timeframe", res.Reason)
}

func TestSafetyVetoPreservesDirection(t *testing.T) {
	notifier := &captureNotifier{}
	e := newTestEngine([]advisor.Advisor{
		&fakeAdvisor{id: "xai", text: buyText},
		&fakeAdvisor{id: "openai", text: buyText},
	}, notifier)

	payload := []byte(`{"SYMB":"XAUUSD","TF":"60","C":"2650","RSI":"82","ATR":"2.0","BAR_TIME":"1756382400"}`)
	res := e.HandleAlert(context.Background(), payload)
	require.Equal(t, types.StatusOK, res.Status)

	assert.Equal(t, types.VerdictBuy, res.Verdict.Decision)
	assert.False(t, res.Verdict.SafetyPassed)
	assert.Contains(t, res.Verdict.SafetyReason, "RSI 82.0")
	assert.False(t, res.Verdict.Actionable())
	// Delivery renders it as a vetoed no-trade with the reason.
	assert.Contains(t, notifier.last(), "لا صفقة")
	assert.Contains(t, notifier.last(), "RSI 82.0")
}

func TestMissingVolatilityDegrades(t *testing.T) {
	e := newTestEngine([]advisor.Advisor{
		&fakeAdvisor{id: "xai", text: "الصفقة: شراء"},
		&fakeAdvisor{id: "openai", text: "الصفقة: شراء"},
	}, &captureNotifier{})

	// Opinions carry no levels and the alert has no ATR.
	payload := []byte(`{"SYMB":"XAUUSD","TF":"60","C":"2650","BAR_TIME":"1756382400"}`)
	res := e.HandleAlert(context.Background(), payload)
	require.Equal(t, types.StatusOK, res.Status)

	assert.Equal(t, types.VerdictNoTrade, res.Verdict.Decision)
	assert.Equal(t, "insufficient volatility data", res.Verdict.ConsensusLabel)
}

func TestFailedSourcesBecomeOpinions(t *testing.T) {
	e := newTestEngine([]advisor.Advisor{
		&fakeAdvisor{id: "xai", err: advisor.ErrMissingCredentials},
		&fakeAdvisor{id: "openai", err: errors.New("connection refused")},
		&fakeAdvisor{id: "claude", text: buyText},
	}, &captureNotifier{})

	res := e.HandleAlert(context.Background(), alertPayload())
	require.Equal(t, types.StatusOK, res.Status)
	require.Len(t, res.Opinions, 3)

	assert.Equal(t, types.OpinionUnavailable, res.Opinions[0].Decision)
	assert.Equal(t, types.OpinionError, res.Opinions[1].Decision)
	assert.Equal(t, types.OpinionBuy, res.Opinions[2].Decision)

	// The one valid opinion is adopted with the single-source label.
	assert.Equal(t, types.VerdictBuy, res.Verdict.Decision)
	assert.Equal(t, "single-source", res.Verdict.ConsensusLabel)
}

func TestSlowSourceTimesOut(t *testing.T) {
	e := newTestEngine([]advisor.Advisor{
		&fakeAdvisor{id: "xai", text: buyText},
		&fakeAdvisor{id: "slow", text: buyText, delay: 2 * time.Second},
	}, &captureNotifier{})

	start := time.Now()
	res := e.HandleAlert(context.Background(), alertPayload())
	require.Equal(t, types.StatusOK, res.Status)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, res.Opinions, 2)
	assert.Equal(t, types.OpinionBuy, res.Opinions[0].Decision)
	assert.Equal(t, types.OpinionError, res.Opinions[1].Decision)

	assert.Equal(t, types.VerdictBuy, res.Verdict.Decision)
	assert.Equal(t, "single-source", res.Verdict.ConsensusLabel)
}

// stubbornAdvisor ignores its context entirely; only the batch budget
// can cut it off.
type stubbornAdvisor struct {
	id    string
	delay time.Duration
}

func (s *stubbornAdvisor) ID() string { return s.id }

func (s *stubbornAdvisor) Analyze(context.Context, string) (string, error) {
	time.Sleep(s.delay)
	return buyText, nil
}

func TestBudgetExpiryYieldsUnavailable(t *testing.T) {
	e := newTestEngine([]advisor.Advisor{
		&fakeAdvisor{id: "xai", text: buyText},
		&stubbornAdvisor{id: "stuck", delay: 3 * time.Second},
	}, &captureNotifier{})

	start := time.Now()
	res := e.HandleAlert(context.Background(), alertPayload())
	require.Equal(t, types.StatusOK, res.Status)
	// The whole batch returned at the budget, not at the straggler's pace.
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, res.Opinions, 2)
	assert.Equal(t, types.OpinionBuy, res.Opinions[0].Decision)
	assert.Equal(t, types.OpinionUnavailable, res.Opinions[1].Decision)
	assert.Equal(t, "advisory budget exhausted", res.Opinions[1].Reason)
}

func TestConflictDeliversNoTrade(t *testing.T) {
	notifier := &captureNotifier{}
	e := newTestEngine([]advisor.Advisor{
		&fakeAdvisor{id: "xai", text: "الصفقة: شراء"},
		&fakeAdvisor{id: "openai", text: "الصفقة: بيع"},
	}, notifier)

	res := e.HandleAlert(context.Background(), alertPayload())
	require.Equal(t, types.StatusOK, res.Status)

	assert.Equal(t, types.VerdictNoTrade, res.Verdict.Decision)
	assert.Equal(t, "conflict", res.Verdict.ConsensusLabel)
	// Delivery still said something.
	assert.Contains(t, notifier.last(), "لا صفقة")
}
