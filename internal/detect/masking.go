package detect

import (
	"fmt"
	"sort"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// maskToken — алиасы старых агентов к каноническим меткам.
var maskToken = map[string]string{
	"CARD_NO":  LabelCardNumber,
	"ORDER_ID": "ORDER_ID",
	"PASSWORD": "PASSWORD",
	"USERNAME": "USERNAME",
}

func tokenFor(label string) string {
	if t, ok := maskToken[label]; ok {
		return t
	}
	if label == "" {
		return "SENSITIVE"
	}
	return label
}

// MaskByEntities заменяет спаны сущностей их токенами-метками.
// Спаны применяются с конца текста к началу, чтобы смещения не поплыли.
func MaskByEntities(original string, entities []domain.Entity) string {
	return mask(original, entities, false)
}

// MaskWithParens — то же, но токен в скобках: "(PHONE)".
func MaskWithParens(original string, entities []domain.Entity) string {
	return mask(original, entities, true)
}

func mask(original string, entities []domain.Entity, parens bool) string {
	if original == "" || len(entities) == 0 {
		return original
	}

	// Валидные непересекающиеся спаны, длинные в приоритете
	var ranges []domain.Entity
	for _, e := range entities {
		if e.Begin >= 0 && e.Begin < e.End && e.End <= len(original) {
			ranges = append(ranges, e)
		}
	}
	ranges = resolveOverlaps(ranges)
	if len(ranges) == 0 {
		return original
	}

	// Замена с хвоста
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Begin > ranges[j].Begin })

	s := original
	for _, r := range ranges {
		tok := tokenFor(r.Label)
		if parens {
			tok = fmt.Sprintf("(%s)", tok)
		}
		s = s[:r.Begin] + tok + s[r.End:]
	}
	return s
}
