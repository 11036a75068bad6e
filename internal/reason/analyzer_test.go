package reason

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/detect"
	"github.com/xela07ax/sentinel-server/internal/domain"
	"github.com/xela07ax/sentinel-server/internal/risk"
)

type memHistory struct {
	history []domain.LogRecord

	// Первые missUpdates вызовов UpdateReason отвечают "строки еще нет"
	missUpdates int
	calls       int

	gotReason string
	gotIntent string
}

func (m *memHistory) RecentPrompts(context.Context, string, string, int) ([]domain.LogRecord, error) {
	return m.history, nil
}

func (m *memHistory) UpdateReason(_ context.Context, _, reason, reasonType string) (bool, error) {
	m.calls++
	if m.calls <= m.missUpdates {
		return false, nil
	}
	m.gotReason = reason
	m.gotIntent = reasonType
	return true, nil
}

type stubIntent struct {
	res *detect.IntentResult
	err error

	lastPrompt string
}

func (s *stubIntent) AnalyzeText(context.Context, string) (*detect.AnalysisResult, error) {
	return &detect.AnalysisResult{}, nil
}

func (s *stubIntent) ClassifyIntent(_ context.Context, prompt string) (*detect.IntentResult, error) {
	s.lastPrompt = prompt
	return s.res, s.err
}

func current() domain.LogRecord {
	return domain.LogRecord{
		RequestID: "req-42",
		Host:      "chatgpt.com",
		Hostname:  "dev-pc",
		Prompt:    "please check card 4111111111111111",
		CreatedAt: time.Now(),
	}
}

func TestAnalyzer_PersistsIntent(t *testing.T) {
	repo := &memHistory{}
	sc := &stubIntent{res: &detect.IntentResult{IntentType: domain.IntentNegligent, Reason: "pasted test sample"}}
	a := NewAnalyzer(repo, sc, zap.NewNop())

	a.Analyze(context.Background(), current(), risk.Info{Category: "financial_exposure", Pattern: "CARD_NUMBER"})

	assert.Equal(t, domain.IntentNegligent, repo.gotIntent)
	assert.Equal(t, "pasted test sample", repo.gotReason)
}

func TestAnalyzer_RetriesUntilRecordFlushed(t *testing.T) {
	// Пакетный писатель мог еще не доставить строку: первые UPDATE мимо
	repo := &memHistory{missUpdates: 2}
	sc := &stubIntent{res: &detect.IntentResult{IntentType: domain.IntentIntentional, Reason: "repeated leak"}}
	a := NewAnalyzer(repo, sc, zap.NewNop())

	a.Analyze(context.Background(), current(), risk.Info{})

	require.GreaterOrEqual(t, repo.calls, 3)
	assert.Equal(t, domain.IntentIntentional, repo.gotIntent)
}

func TestAnalyzer_SidecarFailureStoresUnknown(t *testing.T) {
	repo := &memHistory{}
	sc := &stubIntent{err: errors.New("model crashed")}
	a := NewAnalyzer(repo, sc, zap.NewNop())

	a.Analyze(context.Background(), current(), risk.Info{})

	assert.Equal(t, domain.IntentUnknown, repo.gotIntent)
	assert.Empty(t, repo.gotReason)
}

func TestAnalyzer_DisabledWithoutSidecar(t *testing.T) {
	repo := &memHistory{}
	a := NewAnalyzer(repo, nil, zap.NewNop())

	assert.False(t, a.Enabled())
	a.Analyze(context.Background(), current(), risk.Info{})
	assert.Zero(t, repo.calls)
}

func TestBuildPrompt_ContextOrderAndTruncation(t *testing.T) {
	longPrompt := strings.Repeat("a", 300)
	history := []domain.LogRecord{
		{RequestID: "new", Prompt: "newest context", CreatedAt: time.Now()},
		{RequestID: "old", Prompt: longPrompt, CreatedAt: time.Now().Add(-time.Hour)},
	}
	cur := current()

	p := buildPrompt(history, cur, risk.Info{Category: "financial_exposure", Pattern: "CARD_NUMBER"})

	// Старые выше, текущий последним
	oldIdx := strings.Index(p, "aaa")
	newIdx := strings.Index(p, "newest context")
	curIdx := strings.Index(p, cur.Prompt)
	require.Positive(t, oldIdx)
	assert.Less(t, oldIdx, newIdx)
	assert.Less(t, newIdx, curIdx)

	// Длинные контекстные промпты обрезаются
	assert.NotContains(t, p, strings.Repeat("a", 250))
	assert.Contains(t, p, "category: financial_exposure")
	assert.Contains(t, p, "pattern: CARD_NUMBER")
}

func TestBuildPrompt_MultibyteContextStaysValid(t *testing.T) {
	// Контекст на корейском длиннее лимита: обрезка не должна рвать UTF-8
	history := []domain.LogRecord{
		{RequestID: "kr", Prompt: strings.Repeat("고객 주민번호 확인 ", 40), CreatedAt: time.Now()},
	}

	p := buildPrompt(history, current(), risk.Info{})

	assert.True(t, utf8.ValidString(p))
	assert.Contains(t, p, "고객 주민번호 확인")
}

func TestBuildPrompt_CurrentNotDuplicatedFromHistory(t *testing.T) {
	cur := current()
	history := []domain.LogRecord{cur, {RequestID: "other", Prompt: "older one", CreatedAt: time.Now()}}

	p := buildPrompt(history, cur, risk.Info{})

	assert.Equal(t, 1, strings.Count(p, cur.Prompt))
}
