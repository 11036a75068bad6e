package detect

import (
	"sort"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// RegexDetector — первый эшелон детекции. Работает офлайн, без внешних
// вызовов, поэтому не завернут в reliability-обвязку.
type RegexDetector struct{}

func NewRegexDetector() *RegexDetector {
	return &RegexDetector{}
}

// Detect возвращает неперекрывающиеся сущности, найденные шаблонами.
// Против ложных срабатываний CARD_NUMBER и IMEI принимаются только после
// проверки Луна. Пересечения: сортировка (begin asc, длина desc) и выбор
// непересекающихся спанов.
func (d *RegexDetector) Detect(text string) []domain.Entity {
	if text == "" {
		return nil
	}

	var found []domain.Entity
	for label, rx := range Patterns {
		for _, loc := range rx.FindAllStringIndex(text, -1) {
			b, e := loc[0], loc[1]
			val := text[b:e]

			switch label {
			case LabelCardNumber:
				if !isCardPAN(val) {
					continue
				}
				// Голые 15 цифр без разделителей неотличимы от IMEI —
				// такой спан отдаем метке IMEI
				if len(val) == 15 && digitCount(val) == 15 {
					continue
				}
			case LabelIMEI:
				if !luhnOK(val) {
					continue
				}
			}

			found = append(found, domain.Entity{Value: val, Begin: b, End: e, Label: label})
		}
	}

	return resolveOverlaps(found)
}

// resolveOverlaps оставляет непересекающиеся спаны, длинные — в приоритете.
func resolveOverlaps(found []domain.Entity) []domain.Entity {
	if len(found) == 0 {
		return nil
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Begin != found[j].Begin {
			return found[i].Begin < found[j].Begin
		}
		if found[i].End != found[j].End {
			return found[i].End > found[j].End
		}
		// Идентичный спан забирает более специфичная метка
		return labelRank(found[i].Label) < labelRank(found[j].Label)
	})

	var selected []domain.Entity
	for _, e := range found {
		overlapped := false
		for _, s := range selected {
			if e.Begin < s.End && s.Begin < e.End {
				overlapped = true
				break
			}
		}
		if !overlapped {
			selected = append(selected, e)
		}
	}
	return selected
}

// Специфичность меток для спорных спанов. Общие цифровые шаблоны
// (BANK_ACCOUNT, CARD_EXPIRY) перекрываются форматами с жесткой структурой:
// 010-1234-5678 — телефон, а не счет.
var labelSpecificity = map[string]int{
	LabelPrivateKey: 1, LabelJWT: 2, LabelGithubPAT: 3, LabelAPIKey: 4,
	LabelResidentID: 5, LabelDriverLic: 6, LabelBusinessID: 7, LabelPassport: 8,
	LabelCardNumber: 9, LabelIMEI: 10, LabelPhone: 11, LabelEmail: 12,
	LabelMAC: 13, LabelIPv6: 14, LabelIPv4: 15,
	LabelBankAccount: 16, LabelCardExpiry: 17,
}

func labelRank(label string) int {
	if r, ok := labelSpecificity[label]; ok {
		return r
	}
	return 100
}

// luhnOK — контрольная сумма Луна по всем цифрам строки.
func luhnOK(s string) bool {
	var digits []int
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			digits = append(digits, int(ch-'0'))
		}
	}
	if len(digits) == 0 {
		return false
	}

	total, alt := 0, false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		total += d
		alt = !alt
	}
	return total%10 == 0
}

func isCardPAN(s string) bool {
	n := digitCount(s)
	return n >= 13 && n <= 19 && luhnOK(s)
}

func digitCount(s string) int {
	n := 0
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			n++
		}
	}
	return n
}
