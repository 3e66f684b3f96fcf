package storage

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrUnsupportedType = errors.New("unsupported file type, only JPG/PNG/PDF allowed")
	ErrInvalidDataURI  = errors.New("invalid base64 data uri")
)

// Store writes uploads to a local directory and hands back URLs under
// the /cira-cloud/ prefix.
type Store struct {
	dir     string
	baseURL string
}

func New(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory the store writes into, for static serving.
func (s *Store) Dir() string {
	return s.dir
}

// SaveFile persists a raw payload and returns its public URL. The type
// allow-list is enforced on content type first, then the original
// filename's extension.
func (s *Store) SaveFile(data []byte, contentType, originalName string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}

	ext := extensionFor(contentType, originalName)
	if ext == "" {
		return "", ErrUnsupportedType
	}

	name, err := uniqueName(ext)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return s.baseURL + "/cira-cloud/" + name, nil
}

// SaveDataURI decodes a data:<type>;base64,<payload> string and stores
// it like any other upload.
func (s *Store) SaveDataURI(uri string) (string, error) {
	contentType, payload, ok := splitDataURI(uri)
	if !ok {
		return "", ErrInvalidDataURI
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return "", ErrInvalidDataURI
	}

	return s.SaveFile(data, contentType, "")
}

// IsDataURI reports whether the value is a base64 data URI rather than a
// plain URL.
func IsDataURI(v string) bool {
	v = strings.TrimSpace(v)
	return strings.HasPrefix(v, "data:") && strings.Contains(v, "base64,")
}

func splitDataURI(uri string) (contentType, payload string, ok bool) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(uri, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return "", "", false
	}
	return strings.TrimSuffix(meta, ";base64"), payload, true
}

func extensionFor(contentType, originalName string) string {
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return "jpg"
	case strings.HasPrefix(contentType, "image/png"):
		return "png"
	case strings.HasPrefix(contentType, "application/pdf"):
		return "pdf"
	}

	if originalName != "" {
		switch strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), ".")) {
		case "jpg", "jpeg":
			return "jpg"
		case "png":
			return "png"
		case "pdf":
			return "pdf"
		}
	}

	return ""
}

func uniqueName(ext string) (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating file name: %w", err)
	}
	return fmt.Sprintf("file_%d_%s.%s", time.Now().UnixMilli(), hex.EncodeToString(buf), ext), nil
}
