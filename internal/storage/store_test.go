package storage_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cira/cira-backend/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(t.TempDir(), "http://localhost:5000")
	require.NoError(t, err)
	return store
}

func TestStore_SaveFile(t *testing.T) {
	store := newTestStore(t)

	t.Run("stores a png and returns its public URL", func(t *testing.T) {
		url, err := store.SaveFile([]byte("fake png bytes"), "image/png", "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://localhost:5000/cira-cloud/file_"))
		assert.True(t, strings.HasSuffix(url, ".png"))

		name := url[strings.LastIndex(url, "/")+1:]
		data, err := os.ReadFile(filepath.Join(store.Dir(), name))
		require.NoError(t, err)
		assert.Equal(t, []byte("fake png bytes"), data)
	})

	t.Run("falls back to the filename extension", func(t *testing.T) {
		url, err := store.SaveFile([]byte("%PDF-1.4"), "application/octet-stream", "report.PDF")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(url, ".pdf"))
	})

	t.Run("normalizes jpeg to jpg", func(t *testing.T) {
		url, err := store.SaveFile([]byte("jpeg bytes"), "", "photo.jpeg")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(url, ".jpg"))
	})

	t.Run("rejects empty payloads", func(t *testing.T) {
		_, err := store.SaveFile(nil, "image/png", "x.png")
		assert.ErrorIs(t, err, storage.ErrEmptyFile)
	})

	t.Run("rejects types outside the allow-list", func(t *testing.T) {
		_, err := store.SaveFile([]byte("GIF89a"), "image/gif", "anim.gif")
		assert.ErrorIs(t, err, storage.ErrUnsupportedType)

		_, err = store.SaveFile([]byte("#!/bin/sh"), "", "script.sh")
		assert.ErrorIs(t, err, storage.ErrUnsupportedType)
	})

	t.Run("names never collide", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			url, err := store.SaveFile([]byte("x"), "image/png", "")
			require.NoError(t, err)
			assert.False(t, seen[url])
			seen[url] = true
		}
	})
}

func TestStore_SaveDataURI(t *testing.T) {
	store := newTestStore(t)

	t.Run("decodes and stores a base64 image", func(t *testing.T) {
		payload := base64.StdEncoding.EncodeToString([]byte("fake jpeg"))
		url, err := store.SaveDataURI("data:image/jpeg;base64," + payload)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(url, ".jpg"))
	})

	t.Run("rejects malformed URIs", func(t *testing.T) {
		cases := []string{
			"not-a-data-uri",
			"data:image/png,missing-base64-marker",
			"data:image/png;base64,!!!not-base64!!!",
			"data:image/png;base64,",
		}
		for _, uri := range cases {
			_, err := store.SaveDataURI(uri)
			assert.ErrorIs(t, err, storage.ErrInvalidDataURI, "uri: %s", uri)
		}
	})

	t.Run("rejects disallowed content type inside the URI", func(t *testing.T) {
		payload := base64.StdEncoding.EncodeToString([]byte("GIF89a"))
		_, err := store.SaveDataURI("data:image/gif;base64," + payload)
		assert.ErrorIs(t, err, storage.ErrUnsupportedType)
	})
}

func TestIsDataURI(t *testing.T) {
	assert.True(t, storage.IsDataURI("data:image/png;base64,AAAA"))
	assert.True(t, storage.IsDataURI("  data:application/pdf;base64,AAAA"))
	assert.False(t, storage.IsDataURI("https://example.com/image.png"))
	assert.False(t, storage.IsDataURI("data:image/png,AAAA"))
}
