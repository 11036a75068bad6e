package engine

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

func TestAttachmentStore_Save(t *testing.T) {
	root := t.TempDir()
	store := NewAttachmentStore(root)

	payload := []byte("%PDF-1.4 fake content")
	item := &domain.InboundItem{
		Host:     "chatgpt.com",
		Hostname: "dev-pc",
		Attachment: &domain.Attachment{
			Format: "pdf",
			Data:   base64.StdEncoding.EncodeToString(payload),
		},
	}

	saved, err := store.Save(item, "req-1")
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Equal(t, "pdf", saved.Ext)
	assert.Equal(t, "application/pdf", saved.Mime)
	assert.Equal(t, int64(len(payload)), saved.Size)

	// Файл раскладывается по host/hostname
	assert.Equal(t, filepath.Join(root, "chatgpt.com", "dev-pc"), filepath.Dir(saved.Path))

	data, err := os.ReadFile(saved.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestAttachmentStore_NoAttachment(t *testing.T) {
	store := NewAttachmentStore(t.TempDir())

	saved, err := store.Save(&domain.InboundItem{Host: "x"}, "req-1")
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestAttachmentStore_UnsupportedFormat(t *testing.T) {
	store := NewAttachmentStore(t.TempDir())

	_, err := store.Save(&domain.InboundItem{
		Host:       "x",
		Attachment: &domain.Attachment{Format: "exe", Data: "aGk="},
	}, "req-1")
	assert.Error(t, err)
}

func TestAttachmentStore_BadBase64(t *testing.T) {
	store := NewAttachmentStore(t.TempDir())

	_, err := store.Save(&domain.InboundItem{
		Host:       "x",
		Attachment: &domain.Attachment{Format: "png", Data: "!!not-base64!!"},
	}, "req-1")
	assert.Error(t, err)
}

func TestAttachmentStore_SanitizesNames(t *testing.T) {
	root := t.TempDir()
	store := NewAttachmentStore(root)

	item := &domain.InboundItem{
		Host:   "chat:evil/../host",
		PCName: "PC 01",
		Attachment: &domain.Attachment{
			Format: ".txt",
			Data:   base64.StdEncoding.EncodeToString([]byte("hello")),
		},
	}

	saved, err := store.Save(item, "req-2")
	require.NoError(t, err)

	// Слэши выметены из имен: путь не вырывается за каталог загрузок
	assert.Equal(t, filepath.Join(root, "chat-evil_.._host", "PC_01"), filepath.Dir(saved.Path))
}
