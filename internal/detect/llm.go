package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// AnalysisResult — ответ сайдкара на запрос детекции.
type AnalysisResult struct {
	HasSensitive bool        `json:"has_sensitive"`
	Entities     []RawEntity `json:"entities"`
}

// RawEntity — сущность в терминах модели: метка + точная подстрока,
// без позиций. Спаны восстанавливаются на нашей стороне.
type RawEntity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// IntentResult — ответ сайдкара на Reason-запрос.
type IntentResult struct {
	IntentType string `json:"intent_type"` // intentional / negligent / unknown
	Reason     string `json:"reason"`
}

// SidecarAnalyzer — контракт локального LLM-судьи. Его реализуют и живой
// HTTP-клиент, и reliability-обертка поверх него.
type SidecarAnalyzer interface {
	AnalyzeText(ctx context.Context, text string) (*AnalysisResult, error)
	ClassifyIntent(ctx context.Context, prompt string) (*IntentResult, error)
}

// SidecarClient — JSON-over-HTTP клиент локального модельного сервиса.
// Сайдкар держит модель в памяти и отвечает компактным JSON; сетевых
// походов за пределы хоста нет.
type SidecarClient struct {
	baseURL string
	http    *http.Client
}

func NewSidecarClient(baseURL string, timeout time.Duration) *SidecarClient {
	return &SidecarClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *SidecarClient) AnalyzeText(ctx context.Context, text string) (*AnalysisResult, error) {
	var res AnalysisResult
	if err := c.post(ctx, "/v1/analyze", map[string]string{"text": text}, &res); err != nil {
		return nil, err
	}

	// Whitelist-фильтр: метки вне списка модель выдумала — выбрасываем
	filtered := res.Entities[:0]
	for _, e := range res.Entities {
		label := strings.ToUpper(strings.TrimSpace(e.Type))
		if _, ok := AllowedLabels[label]; !ok {
			continue
		}
		if strings.TrimSpace(e.Value) == "" {
			continue
		}
		filtered = append(filtered, RawEntity{Type: label, Value: e.Value})
	}
	res.Entities = filtered
	res.HasSensitive = res.HasSensitive && len(res.Entities) > 0

	return &res, nil
}

func (c *SidecarClient) ClassifyIntent(ctx context.Context, prompt string) (*IntentResult, error) {
	var res IntentResult
	if err := c.post(ctx, "/v1/reason", map[string]string{"prompt": prompt}, &res); err != nil {
		return nil, err
	}

	switch res.IntentType {
	case "intentional", "negligent", "unknown":
	default:
		res.IntentType = "unknown"
	}
	return &res, nil
}

func (c *SidecarClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("sidecar: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sidecar: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sidecar: call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &ThrottleError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Cause:      fmt.Errorf("sidecar: %s returned 429", path),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sidecar: %s returned status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sidecar: read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("sidecar: decode response: %w", err)
	}
	return nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 2 * time.Second
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 2 * time.Second
}
