package domain

import (
	"encoding/json"
	"time"
)

// Entity — один найденный чувствительный фрагмент в тексте.
// begin/end — байтовые смещения в исходном prompt (полуинтервал [begin, end)).
type Entity struct {
	Value string `json:"value"`
	Begin int    `json:"begin"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// Attachment — вложение агента. data — base64 содержимого файла.
type Attachment struct {
	Format string `json:"format,omitempty"`
	Data   string `json:"data,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

// InboundItem — запрос агента на инспекцию промпта.
type InboundItem struct {
	Time      string `json:"time"`
	PublicIP  string `json:"public_ip,omitempty"`
	PrivateIP string `json:"private_ip,omitempty"`

	// Host — целевой LLM-сервис (например chatgpt.com)
	Host     string `json:"host,omitempty"`
	Hostname string `json:"hostname,omitempty"`

	// PCName агенты шлют в трех вариантах написания, см. UnmarshalJSON
	PCName string `json:"pc_name,omitempty"`

	Prompt     string      `json:"prompt"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Interface  string      `json:"interface,omitempty"`
}

// UnmarshalJSON объединяет алиасы поля PCName: старые агенты шлют "PCName",
// часть — "pcName", новые — "pc_name". Приоритет: PCName > pcName > pc_name.
func (it *InboundItem) UnmarshalJSON(data []byte) error {
	type alias InboundItem
	aux := struct {
		*alias
		PCNameUpper string `json:"PCName"`
		PCNameCamel string `json:"pcName"`
	}{alias: (*alias)(it)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.PCNameUpper != "" {
		it.PCName = aux.PCNameUpper
	} else if aux.PCNameCamel != "" {
		it.PCName = aux.PCNameCamel
	}
	return nil
}

// ServerOut — ответ сервера агенту по результатам инспекции.
type ServerOut struct {
	RequestID      string   `json:"request_id"`
	Host           string   `json:"host"`
	ModifiedPrompt string   `json:"modified_prompt"`
	HasSensitive   bool     `json:"has_sensitive"`
	Entities       []Entity `json:"entities"`
	ProcessingMs   int64    `json:"processing_ms"`

	FileBlocked bool   `json:"file_blocked"`
	Allow       bool   `json:"allow"`
	Action      string `json:"action"`

	// Alert — текст-обоснование для агента (reason локального AI и т.п.)
	Alert string `json:"alert"`

	// Обработанное вложение (nil, если вложения не было)
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Итоговые действия сервера по запросу
const (
	ActionAllow        = "allow"
	ActionMaskAndAllow = "mask_and_allow"
	ActionBlock        = "block"
	ActionBlockSimilar = "block_upload_similar"
)

// LogRecord — одна запись журнала: запрос агента + результат инспекции.
// RequestID (UUID строкой) — первичный ключ.
type LogRecord struct {
	RequestID string `json:"request_id"`

	// Оригинал запроса
	Time       string      `json:"time"`
	PublicIP   string      `json:"public_ip"`
	PrivateIP  string      `json:"private_ip"`
	Host       string      `json:"host"`
	Hostname   string      `json:"hostname"`
	Prompt     string      `json:"prompt"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Interface  string      `json:"interface"`

	// Результат сервера
	ModifiedPrompt string   `json:"modified_prompt"`
	HasSensitive   bool     `json:"has_sensitive"`
	Entities       []Entity `json:"entities"`
	ProcessingMs   int64    `json:"processing_ms"`

	// Политика
	FileBlocked bool   `json:"file_blocked"`
	Allow       bool   `json:"allow"`
	Action      string `json:"action"`

	CreatedAt time.Time `json:"created_at"`

	// Поля страницы Reason (заполняются асинхронным анализатором)
	Reason       string `json:"reason,omitempty"`
	ReasonType   string `json:"reason_type,omitempty"`   // intentional / negligent / unknown
	RiskCategory string `json:"risk_category,omitempty"` // например "identity_exposure"
	RiskPattern  string `json:"risk_pattern,omitempty"`  // например "NAME + PHONE + ADDRESS"
}

// Типы намерения для Reason-анализа
const (
	IntentIntentional = "intentional"
	IntentNegligent   = "negligent"
	IntentUnknown     = "unknown"
)

// LogFilter — фильтры выборки GET /api/logs.
type LogFilter struct {
	Host         string
	Action       string
	HasSensitive *bool
	Limit        int
	Offset       int
}

// RecentLog — усеченная запись для таблиц дашборда.
// Значения (value) сущностей намеренно не отдаются (XSS/утечка в браузер).
type RecentLog struct {
	Time         string       `json:"time"`
	Host         string       `json:"host"`
	Hostname     string       `json:"hostname"`
	PublicIP     string       `json:"public_ip"`
	Action       string       `json:"action"`
	HasSensitive bool         `json:"has_sensitive"`
	FileBlocked  bool         `json:"file_blocked"`
	Entities     []EntityKind `json:"entities"`
	Prompt       string       `json:"prompt"`
}

// EntityKind — только метка сущности, без значения.
type EntityKind struct {
	Label string `json:"label"`
}
