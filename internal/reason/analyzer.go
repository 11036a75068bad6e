package reason

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/detect"
	"github.com/xela07ax/sentinel-server/internal/domain"
	"github.com/xela07ax/sentinel-server/internal/risk"
)

// Системный промпт Reason-анализа: модель получает до 6 промптов одного
// пользователя (host + pc) и решает, похожа ли текущая утечка на умысел.
const sysPrompt = `You are a security analyst specializing in insider data leakage.

Given:
- A sequence of up to 6 LLM prompts from the SAME user (same host + PC).
- The last prompt is the CURRENT one where sensitive data was detected.
- For each prompt, you see: time, host, PC name, public/private IP, and the prompt text.
- You also see which sensitive entity labels were detected in the CURRENT prompt.

Your task:
1) Decide if the CURRENT prompt looks like:
   - "intentional": deliberate attempt to exfiltrate or test the system with real sensitive data
   - "negligent": user carelessness, copy-paste mistake, or misunderstanding of policy
   - "unknown": cannot judge from context

2) Briefly explain WHY in one short sentence (<= 80 characters).

Return ONLY a compact JSON with:
{"intent_type": "intentional" | "negligent" | "unknown", "reason": "<one short line>"}

Rules:
- Repeated similar sensitive data or clearly malicious phrasing -> prefer "intentional".
- Pasted documents, screenshots or test samples by mistake -> "negligent".
- Ambiguous or too short context -> "unknown".
- Output valid JSON only. No extra text, no code fences.`

const contextDepth = 5 // предыдущих промптов в контексте (плюс текущий)

// HistoryRepository — чтение контекста и дозапись результата анализа.
type HistoryRepository interface {
	// RecentPrompts — последние записи той же пары (host, hostname), новые первыми
	RecentPrompts(ctx context.Context, host, hostname string, limit int) ([]domain.LogRecord, error)
	// UpdateReason дописывает reason-поля; found=false, если записи еще нет
	UpdateReason(ctx context.Context, requestID, reason, reasonType string) (bool, error)
}

// Analyzer классифицирует намерение пользователя по факту утечки.
// Работает вне горячего пути: инспекция отвечает агенту сразу, анализ
// догоняет запись в журнале позже.
type Analyzer struct {
	repo    HistoryRepository
	sidecar detect.SidecarAnalyzer // nil — анализ выключен
	logger  *zap.Logger
}

func NewAnalyzer(repo HistoryRepository, sidecar detect.SidecarAnalyzer, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		repo:    repo,
		sidecar: sidecar,
		logger:  logger.Named("reason"),
	}
}

// Enabled — без сайдкара Reason-анализ не имеет смысла.
func (a *Analyzer) Enabled() bool { return a.sidecar != nil }

// Analyze собирает контекст, спрашивает модель и дописывает результат в
// журнал. Запись уходит в Postgres пакетным писателем асинхронно, поэтому
// UPDATE ретраится, пока строка не появится.
func (a *Analyzer) Analyze(ctx context.Context, current domain.LogRecord, info risk.Info) {
	if a.sidecar == nil {
		return
	}

	intentType := domain.IntentUnknown
	reasonText := ""

	history, err := a.repo.RecentPrompts(ctx, current.Host, current.Hostname, contextDepth)
	if err != nil {
		a.logger.Warn("reason context fetch failed", zap.Error(err))
	}

	prompt := buildPrompt(history, current, info)
	res, err := a.sidecar.ClassifyIntent(ctx, prompt)
	if err != nil {
		a.logger.Warn("intent classification failed",
			zap.String("request_id", current.RequestID), zap.Error(err))
	} else {
		intentType = res.IntentType
		reasonText = res.Reason
	}

	// Строка могла еще не доехать до Postgres (пакетный писатель) —
	// повторяем UPDATE с бэкоффом, пока не зацепим ее.
	err = retry.New(
		retry.Context(ctx),
		retry.Attempts(6),
		retry.Delay(300*time.Millisecond),
	).Do(func() error {
		found, uerr := a.repo.UpdateReason(ctx, current.RequestID, reasonText, intentType)
		if uerr != nil {
			return uerr
		}
		if !found {
			return fmt.Errorf("reason: record %s not flushed yet", current.RequestID)
		}
		return nil
	})
	if err != nil {
		a.logger.Error("reason persist failed",
			zap.String("request_id", current.RequestID), zap.Error(err))
		return
	}

	a.logger.Info("intent classified",
		zap.String("request_id", current.RequestID),
		zap.String("intent", intentType))
}

// buildPrompt формирует текст запроса к модели: системные правила,
// контекстные логи (старые выше) и риск-информация текущего промпта.
func buildPrompt(history []domain.LogRecord, current domain.LogRecord, info risk.Info) string {
	var b strings.Builder
	b.WriteString(sysPrompt)
	b.WriteString("\n\n=== CONTEXT LOGS ===\n")

	// history приходит новыми вперед; разворачиваем и добавляем текущий в конец
	logs := make([]domain.LogRecord, 0, len(history)+1)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].RequestID == current.RequestID {
			continue
		}
		logs = append(logs, history[i])
	}
	logs = append(logs, current)

	for i, r := range logs {
		prompt := strings.TrimSpace(strings.ReplaceAll(r.Prompt, "\n", " "))
		// Срез по рунам: контекст почти всегда многобайтный
		if runes := []rune(prompt); len(runes) > 200 {
			prompt = string(runes[:200]) + "..."
		}
		fmt.Fprintf(&b, "[%d] time=%s host=%s pc=%s pub=%s priv=%s\n",
			i+1, r.CreatedAt.Format(time.RFC3339), r.Host, r.Hostname, r.PublicIP, r.PrivateIP)
		fmt.Fprintf(&b, "    prompt: %s\n", prompt)
	}

	b.WriteString("\n=== CURRENT PROMPT RISK INFO ===\n")
	fmt.Fprintf(&b, "category: %s\n", info.Category)
	fmt.Fprintf(&b, "pattern: %s\n", info.Pattern)
	fmt.Fprintf(&b, "description: %s\n", info.Description)
	b.WriteString("\nNow respond with the JSON described above.\n")

	return b.String()
}
