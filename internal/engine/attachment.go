package engine

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// Расширения, которые агент может прислать, и их MIME-типы.
var extToMime = map[string]string{
	// изображения
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",

	// документы
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"csv":  "text/csv",
	"txt":  "text/plain",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// sanitizeName нормализует строку для использования в имени файла.
// Двоеточие меняем на дефис (совместимость с Windows-агентами), остальные
// небезопасные символы — на подчеркивание.
func sanitizeName(s string) string {
	if s == "" {
		s = "unknown"
	}
	s = strings.ReplaceAll(s, ":", "-")
	return unsafeChars.ReplaceAllString(s, "_")
}

// SavedFile — вложение, сохраненное на диск.
type SavedFile struct {
	Ext  string // "png", "pdf", ...
	Mime string // "image/png", ...
	Path string
	Size int64
}

// AttachmentStore сохраняет вложения агентов в каталог downloads,
// раскладывая по хосту и имени машины.
type AttachmentStore struct {
	root string
}

func NewAttachmentStore(root string) *AttachmentStore {
	if root == "" {
		root = "./downloads"
	}
	return &AttachmentStore{root: root}
}

// Save декодирует base64-вложение и кладет файл на диск.
// Возвращает nil, nil если вложения нет. Неизвестное расширение — ошибка.
func (s *AttachmentStore) Save(item *domain.InboundItem, requestID string) (*SavedFile, error) {
	att := item.Attachment
	if att == nil || att.Data == "" {
		return nil, nil
	}

	ext := strings.ToLower(strings.TrimPrefix(att.Format, "."))
	mime, ok := extToMime[ext]
	if !ok {
		return nil, fmt.Errorf("attachment: unsupported format %q", att.Format)
	}

	raw, err := base64.StdEncoding.DecodeString(att.Data)
	if err != nil {
		return nil, fmt.Errorf("attachment: bad base64 payload: %w", err)
	}

	dir := filepath.Join(s.root,
		sanitizeName(item.Host),
		sanitizeName(firstNonEmpty(item.Hostname, item.PCName)),
	)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("attachment: mkdir %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%s.%s", time.Now().Format("20060102T150405"), sanitizeName(requestID), ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o640); err != nil {
		return nil, fmt.Errorf("attachment: write %s: %w", path, err)
	}

	return &SavedFile{Ext: ext, Mime: mime, Path: path, Size: int64(len(raw))}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
