package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/bzik/backend/internal/config"
	"github.com/zhouzirui/bzik/backend/internal/service/ai"
)

func TestNewCompleter(t *testing.T) {
	_, isHTTP := newCompleter(config.LLMConfig{Provider: config.ProviderOpenRouter}).(*ai.HTTPCompleter)
	assert.True(t, isHTTP)

	_, isArk := newCompleter(config.LLMConfig{Provider: config.ProviderArk, Model: "m"}).(*ai.ArkCompleter)
	assert.True(t, isArk)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	fileStore, err := openStore(config.MemoryConfig{Backend: "file", Path: filepath.Join(dir, "m.json")}, 20, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, fileStore.Close())

	sqliteStore, err := openStore(config.MemoryConfig{Backend: "sqlite", DBPath: filepath.Join(dir, "db", "bzik.db")}, 20, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, sqliteStore.Close())
}

func TestRunServer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not stop")
	}
}
