package engine

// SimilarityChecker сравнивает вложение с эталонными изображениями из
// adminset (утечки скриншотов документов). Возвращает лучший скор [0..1].
type SimilarityChecker interface {
	BestScore(path string) (float64, error)
}

// NoopSimilarity — выключенная проверка: всегда 0.0.
// Перцептивное хэширование изображений сознательно вынесено за рамки
// серверного ядра; интерфейс оставлен как точка подключения.
type NoopSimilarity struct{}

func (NoopSimilarity) BestScore(string) (float64, error) { return 0, nil }
