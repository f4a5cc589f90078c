package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dashvoice/dashvoice/internal/config"
	"github.com/dashvoice/dashvoice/internal/logging"
)

func TestArtifactName(t *testing.T) {
	a := ArtifactName()
	b := ArtifactName()

	if !strings.HasSuffix(a, ".wav") {
		t.Errorf("ArtifactName() = %q, want .wav suffix", a)
	}
	if a == b {
		t.Error("ArtifactName() returned the same name twice")
	}
}

func TestLocalStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://example.com", logging.New("error", "text"))
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	data := []byte("wav bytes")
	url, err := store.Save(context.Background(), "test.wav", data)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if url != "http://example.com/output/test.wav" {
		t.Errorf("url = %q, want http://example.com/output/test.wav", url)
	}

	written, err := os.ReadFile(filepath.Join(dir, "test.wav"))
	if err != nil {
		t.Fatalf("failed to read saved artifact: %v", err)
	}
	if string(written) != string(data) {
		t.Errorf("saved data = %q, want %q", written, data)
	}
}

func TestLocalStore_RelativeURLWithoutBase(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "", logging.New("error", "text"))
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	url, err := store.Save(context.Background(), "a.wav", []byte{1})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if url != "/output/a.wav" {
		t.Errorf("url = %q, want /output/a.wav", url)
	}
}

func TestLocalStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	if _, err := NewLocalStore(dir, "", logging.New("error", "text")); err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("output directory was not created: %v", err)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	logger := logging.New("error", "text")

	localCfg := config.StorageConfig{Type: "local", OutputDir: t.TempDir()}
	store, err := New(localCfg, logger)
	if err != nil {
		t.Fatalf("New(local) error = %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Errorf("New(local) = %T, want *LocalStore", store)
	}

	ossCfg := config.StorageConfig{
		Type:         "oss",
		OSSEndpoint:  "oss.example.com",
		OSSBucket:    "audio",
		OSSAccessKey: "ak",
		OSSSecretKey: "sk",
		OSSUseSSL:    true,
		OSSURLMode:   "public",
	}
	store, err = New(ossCfg, logger)
	if err != nil {
		t.Fatalf("New(oss) error = %v", err)
	}
	if _, ok := store.(*OSSStore); !ok {
		t.Errorf("New(oss) = %T, want *OSSStore", store)
	}

	if _, err := New(config.StorageConfig{Type: "ftp"}, logger); err == nil {
		t.Error("New(ftp) error = nil, want unknown type error")
	}
}
