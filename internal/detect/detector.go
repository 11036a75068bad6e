package detect

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// Result — итог детекции по тексту.
type Result struct {
	HasSensitive bool
	Entities     []domain.Entity
	ProcessingMs int64
}

// Detector — составной детектор: regex-слой + LLM-сайдкар.
// Regex дает дешевые и точные находки (секреты, номера), модель — контекстные
// (имена, адреса). Отказ сайдкара деградирует до regex-only: детекция
// fail-open, блокирующие решения принимает политика выше.
type Detector struct {
	rx      *RegexDetector
	sidecar SidecarAnalyzer // nil — работаем только на regex
	logger  *zap.Logger
}

func NewDetector(sidecar SidecarAnalyzer, logger *zap.Logger) *Detector {
	return &Detector{
		rx:      NewRegexDetector(),
		sidecar: sidecar,
		logger:  logger.Named("detector"),
	}
}

// Detect прогоняет текст через оба слоя и сливает результаты.
// Спаны LLM-сущностей (type+value без позиций) восстанавливаются
// последовательным неперекрывающимся поиском значения в оригинале.
func (d *Detector) Detect(ctx context.Context, text string) Result {
	start := time.Now()

	entities := d.rx.Detect(text)

	if d.sidecar != nil && strings.TrimSpace(text) != "" {
		res, err := d.sidecar.AnalyzeText(ctx, text)
		if err != nil {
			d.logger.Warn("sidecar analysis failed, falling back to regex-only", zap.Error(err))
		} else {
			entities = mergeRawEntities(text, entities, res.Entities)
		}
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Begin != entities[j].Begin {
			return entities[i].Begin < entities[j].Begin
		}
		return entities[i].End > entities[j].End
	})

	return Result{
		HasSensitive: len(entities) > 0,
		Entities:     entities,
		ProcessingMs: time.Since(start).Milliseconds(),
	}
}

// mergeRawEntities добавляет LLM-находки к уже выбранным спанам.
// Значение может встречаться несколько раз — каждому вхождению достается
// не более одного спана, занятые байты пропускаются.
func mergeRawEntities(text string, existing []domain.Entity, raw []RawEntity) []domain.Entity {
	taken := make([]bool, len(text))
	for _, e := range existing {
		for i := e.Begin; i < e.End && i < len(taken); i++ {
			taken[i] = true
		}
	}

	out := existing
	for _, r := range raw {
		for _, span := range findFreeSpans(text, r.Value, taken) {
			for i := span[0]; i < span[1]; i++ {
				taken[i] = true
			}
			out = append(out, domain.Entity{
				Value: text[span[0]:span[1]],
				Begin: span[0],
				End:   span[1],
				Label: r.Type,
			})
		}
	}
	return out
}

// findFreeSpans ищет все вхождения value, не задевающие занятые байты.
func findFreeSpans(text, value string, taken []bool) [][2]int {
	if value == "" {
		return nil
	}

	var spans [][2]int
	from := 0
	for {
		idx := strings.Index(text[from:], value)
		if idx < 0 {
			break
		}
		b := from + idx
		e := b + len(value)

		free := true
		for i := b; i < e; i++ {
			if taken[i] {
				free = false
				break
			}
		}
		if free {
			spans = append(spans, [2]int{b, e})
		}
		from = e
	}
	return spans
}
