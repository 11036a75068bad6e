package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/audit"
	"github.com/xela07ax/sentinel-server/internal/detect"
	"github.com/xela07ax/sentinel-server/internal/domain"
	"github.com/xela07ax/sentinel-server/internal/reason"
	"github.com/xela07ax/sentinel-server/internal/risk"
)

// Порог схожести вложения с эталонами adminset
const similarityThreshold = 0.9

// Inspector — конвейер обработки запроса агента: вложение, детекция,
// политика, маскирование, журнал, метрики. Одна инспекция = один UUID.
type Inspector struct {
	detector   *detect.Detector
	store      *AttachmentStore
	settings   *SettingsCache
	similarity SimilarityChecker
	recorder   *audit.Recorder
	analyzer   *reason.Analyzer // nil — Reason-анализ выключен
	metrics    *Metrics
	logger     *zap.Logger
}

func NewInspector(
	detector *detect.Detector,
	store *AttachmentStore,
	settings *SettingsCache,
	similarity SimilarityChecker,
	recorder *audit.Recorder,
	analyzer *reason.Analyzer,
	metrics *Metrics,
	logger *zap.Logger,
) *Inspector {
	if similarity == nil {
		similarity = NoopSimilarity{}
	}
	return &Inspector{
		detector:   detector,
		store:      store,
		settings:   settings,
		similarity: similarity,
		recorder:   recorder,
		analyzer:   analyzer,
		metrics:    metrics,
		logger:     logger.Named("inspector"),
	}
}

// Inspect обрабатывает один запрос агента и возвращает вердикт.
// Ошибки внутренних подсистем не валят запрос: детекция fail-open,
// решение о блокировке принимает только политика.
func (ins *Inspector) Inspect(ctx context.Context, item *domain.InboundItem) *domain.ServerOut {
	start := time.Now()
	requestID := uuid.NewString()
	policy := ins.settings.Snapshot()

	out := &domain.ServerOut{
		RequestID: requestID,
		Host:      item.Host,
		Allow:     true,
		Action:    domain.ActionAllow,
	}

	// Выключенный фильтром сервис не инспектируется, но журналируется
	group, service := classifyService(item)
	inspected := policy.ServiceEnabled(group, service)

	var saved *SavedFile
	if inspected {
		var err error
		saved, err = ins.store.Save(item, requestID)
		if err != nil {
			ins.metrics.ErrorTotal.WithLabelValues("attachment").Inc()
			ins.logger.Warn("attachment save failed",
				zap.String("request_id", requestID), zap.Error(err))
		}

		// Проверка схожести с эталонными документами (adminset)
		if saved != nil && strings.HasPrefix(saved.Mime, "image/") {
			score, err := ins.similarity.BestScore(saved.Path)
			if err != nil {
				ins.logger.Warn("similarity check failed", zap.Error(err))
			} else if score >= similarityThreshold {
				out.FileBlocked = true
			}
		}

		res := ins.detector.Detect(ctx, item.Prompt)
		out.HasSensitive = res.HasSensitive
		out.Entities = res.Entities

		for _, e := range res.Entities {
			ins.metrics.EntitiesTotal.WithLabelValues(e.Label).Inc()
		}
	}

	out.ModifiedPrompt = item.Prompt
	applyPolicy(out, policy, item.Prompt)

	out.ProcessingMs = time.Since(start).Milliseconds()

	rec := buildRecord(requestID, item, out)
	var info risk.Info
	if out.HasSensitive {
		info = risk.Classify(out.Entities)
		rec.RiskCategory = info.Category
		rec.RiskPattern = info.Pattern
	}
	ins.recorder.Log(rec)

	ins.metrics.InspectTotal.WithLabelValues(item.Host, out.Action).Inc()
	ins.metrics.InspectDuration.WithLabelValues(item.Host, out.Action).
		Observe(time.Since(start).Seconds())

	// Намерение пользователя выясняем вне горячего пути
	if out.HasSensitive && ins.analyzer != nil && ins.analyzer.Enabled() {
		go ins.analyzer.Analyze(context.Background(), rec, info)
	}

	return out
}

// applyPolicy выставляет итоговое действие по найденным сущностям и
// серверной политике. Блокировка файла перекрывает решение по тексту.
func applyPolicy(out *domain.ServerOut, policy domain.SettingsConfig, prompt string) {
	if out.FileBlocked {
		out.Allow = false
		out.Action = domain.ActionBlockSimilar
		out.Alert = "attachment blocked: matches a protected document"
		return
	}
	if !out.HasSensitive {
		return
	}

	switch policy.ResponseMethod {
	case domain.ResponseBlock:
		out.Allow = false
		out.Action = domain.ActionBlock
		out.Alert = "request blocked: sensitive data detected"
	case domain.ResponseAllow:
		out.Action = domain.ActionAllow
		out.Alert = "sensitive data detected, request passed by policy"
	default: // mask
		out.Action = domain.ActionMaskAndAllow
		out.ModifiedPrompt = detect.MaskByEntities(prompt, out.Entities)
		out.Alert = "sensitive data masked"
	}
}

func buildRecord(requestID string, item *domain.InboundItem, out *domain.ServerOut) domain.LogRecord {
	return domain.LogRecord{
		RequestID:      requestID,
		Time:           item.Time,
		PublicIP:       item.PublicIP,
		PrivateIP:      item.PrivateIP,
		Host:           item.Host,
		Hostname:       firstNonEmpty(item.Hostname, item.PCName),
		Prompt:         item.Prompt,
		Attachment:     item.Attachment,
		Interface:      item.Interface,
		ModifiedPrompt: out.ModifiedPrompt,
		HasSensitive:   out.HasSensitive,
		Entities:       out.Entities,
		ProcessingMs:   out.ProcessingMs,
		FileBlocked:    out.FileBlocked,
		Allow:          out.Allow,
		Action:         out.Action,
		CreatedAt:      time.Now(),
	}
}

// classifyService сопоставляет запрос агента фильтрам настроек.
// Группа определяется полем interface ("desktop" -> mcp), сервис — хостом.
func classifyService(item *domain.InboundItem) (group, service string) {
	host := strings.ToLower(item.Host)

	if strings.Contains(strings.ToLower(item.Interface), "desktop") ||
		strings.Contains(strings.ToLower(item.Interface), "copilot") {
		return "mcp", mcpServiceName(host, strings.ToLower(item.Interface))
	}
	return "llm", llmServiceName(host)
}

func llmServiceName(host string) string {
	switch {
	case strings.Contains(host, "chatgpt") || strings.Contains(host, "openai"):
		return "gpt"
	case strings.Contains(host, "gemini") || strings.Contains(host, "bard"):
		return "gemini"
	case strings.Contains(host, "claude") || strings.Contains(host, "anthropic"):
		return "claude"
	case strings.Contains(host, "deepseek"):
		return "deepseek"
	case strings.Contains(host, "groq"):
		return "groq"
	default:
		return host
	}
}

func mcpServiceName(host, iface string) string {
	switch {
	case strings.Contains(iface, "copilot") || strings.Contains(host, "vscode"):
		return "vscode_copilot"
	case strings.Contains(host, "claude"):
		return "claude_desktop"
	case strings.Contains(host, "gpt") || strings.Contains(host, "openai"):
		return "gpt_desktop"
	default:
		return host
	}
}
