// Package verdictlog persists every verdict as JSONL in daily files for
// later audit. Old files are gzip-compressed past the retention window.
package verdictlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tv-consensus-bot/internal/types"
)

// Entry is one audit record, written once per processed alert.
type Entry struct {
	Time           string             `json:"time"`
	Symbol         string             `json:"symbol"`
	Timeframe      string             `json:"timeframe"`
	BarTime        string             `json:"bar_time"`
	Decision       string             `json:"decision"`
	Entry          float64            `json:"entry,omitempty"`
	TakeProfit     float64            `json:"take_profit,omitempty"`
	StopLoss       float64            `json:"stop_loss,omitempty"`
	ConsensusLabel string             `json:"consensus_label"`
	SafetyPassed   bool               `json:"safety_passed"`
	SafetyReason   string             `json:"safety_reason,omitempty"`
	Sources        []string           `json:"sources,omitempty"`
	Indicators     map[string]float64 `json:"indicators,omitempty"`
}

// Log appends entries to daily UTC files under a directory.
type Log struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) *Log {
	if dir == "" {
		dir = "logs"
	}
	return &Log{dir: dir}
}

func (l *Log) dailyFilepath(t time.Time) string {
	return filepath.Join(l.dir, t.UTC().Format("2006-01-02")+".jsonl")
}

// Append writes one verdict record. Failures are reported, not fatal;
// the audit trail must never block delivery.
func (l *Log) Append(snap *types.AlertSnapshot, verdict *types.Verdict) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	e := Entry{
		Time:           now.Format("2006-01-02 15:04:05"),
		Symbol:         snap.Symbol,
		Timeframe:      string(snap.Timeframe),
		BarTime:        snap.BarTime.UTC().Format(time.RFC3339),
		Decision:       string(verdict.Decision),
		ConsensusLabel: verdict.ConsensusLabel,
		SafetyPassed:   verdict.SafetyPassed,
		SafetyReason:   verdict.SafetyReason,
		Sources:        verdict.Sources,
		Indicators:     snap.Indicators,
	}
	// Levels are logged whenever present, vetoed trades included; the
	// audit trail should show what was almost taken.
	if verdict.Entry != nil {
		e.Entry = *verdict.Entry
	}
	if verdict.TakeProfit != nil {
		e.TakeProfit = *verdict.TakeProfit
	}
	if verdict.StopLoss != nil {
		e.StopLoss = *verdict.StopLoss
	}

	p := l.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(e)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips daily files older than the retention window and
// removes the originals.
func (l *Log) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	return filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, e2 := os.Stat(gz); e2 == nil {
			return os.Remove(p)
		}

		in, e3 := os.Open(p)
		if e3 != nil {
			return nil
		}
		defer in.Close()

		out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e4 != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e5 := io.Copy(gw, in); e5 == nil {
			_ = gw.Close()
			_ = out.Close()
			return os.Remove(p)
		}
		_ = gw.Close()
		_ = out.Close()
		return nil
	})
}
