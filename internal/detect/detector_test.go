package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSidecar — управляемая заглушка LLM-судьи.
type fakeSidecar struct {
	analysis *AnalysisResult
	err      error
}

func (f *fakeSidecar) AnalyzeText(context.Context, string) (*AnalysisResult, error) {
	return f.analysis, f.err
}

func (f *fakeSidecar) ClassifyIntent(context.Context, string) (*IntentResult, error) {
	return &IntentResult{IntentType: "unknown"}, nil
}

func TestDetector_RegexOnly(t *testing.T) {
	d := NewDetector(nil, zap.NewNop())

	res := d.Detect(context.Background(), "mail me at user@corp.com")
	require.True(t, res.HasSensitive)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, LabelEmail, res.Entities[0].Label)
}

func TestDetector_MergesSidecarEntities(t *testing.T) {
	sc := &fakeSidecar{analysis: &AnalysisResult{
		HasSensitive: true,
		Entities:     []RawEntity{{Type: LabelName, Value: "Hong Gildong"}},
	}}
	d := NewDetector(sc, zap.NewNop())

	text := "author Hong Gildong, mail user@corp.com"
	res := d.Detect(context.Background(), text)

	require.Len(t, res.Entities, 2)
	// Сущности отсортированы по позиции
	assert.Equal(t, LabelName, res.Entities[0].Label)
	assert.Equal(t, "Hong Gildong", text[res.Entities[0].Begin:res.Entities[0].End])
	assert.Equal(t, LabelEmail, res.Entities[1].Label)
}

func TestDetector_SidecarFailureFallsBackToRegex(t *testing.T) {
	sc := &fakeSidecar{err: errors.New("sidecar down")}
	d := NewDetector(sc, zap.NewNop())

	res := d.Detect(context.Background(), "mail user@corp.com")
	require.True(t, res.HasSensitive)
	assert.Len(t, res.Entities, 1)
}

func TestDetector_SidecarValueOverlappingRegexSpanSkipped(t *testing.T) {
	// Модель вернула значение, уже занятое regex-находкой:
	// дубликат не должен появиться
	sc := &fakeSidecar{analysis: &AnalysisResult{
		HasSensitive: true,
		Entities:     []RawEntity{{Type: LabelEmail, Value: "user@corp.com"}},
	}}
	d := NewDetector(sc, zap.NewNop())

	res := d.Detect(context.Background(), "mail user@corp.com")
	assert.Len(t, res.Entities, 1)
}

func TestDetector_RepeatedSidecarValue(t *testing.T) {
	sc := &fakeSidecar{analysis: &AnalysisResult{
		HasSensitive: true,
		Entities:     []RawEntity{{Type: LabelName, Value: "Kim"}},
	}}
	d := NewDetector(sc, zap.NewNop())

	res := d.Detect(context.Background(), "Kim told Kim")
	// Каждое вхождение значения получает свой спан
	require.Len(t, res.Entities, 2)
	assert.Equal(t, 0, res.Entities[0].Begin)
	assert.Equal(t, 9, res.Entities[1].Begin)
}

func TestDetector_EmptyText(t *testing.T) {
	d := NewDetector(nil, zap.NewNop())
	res := d.Detect(context.Background(), "")
	assert.False(t, res.HasSensitive)
	assert.Empty(t, res.Entities)
}
