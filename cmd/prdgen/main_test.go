package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prdlabs/prdgen"
	"github.com/prdlabs/prdgen/mock"
)

func TestBuildGateway_Ollama(t *testing.T) {
	t.Parallel()
	gw, err := buildGateway(backendOllama, "", "", "", "", zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, gw)
}

func TestBuildGateway_OpenAI(t *testing.T) {
	t.Parallel()
	gw, err := buildGateway(backendOpenAI, "http://localhost:8080/v1", "qwen2.5:7b", "placeholder", "", zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, gw)
}

func TestBuildGateway_UnknownBackend(t *testing.T) {
	t.Parallel()
	_, err := buildGateway("llamafile", "", "", "", "", zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestBuildGateway_OllamaHostEnv(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[{"name":"llama3.1:8b"}]}`)
	}))
	defer srv.Close()

	// OLLAMA_HOST commonly holds a bare host:port.
	host := strings.TrimPrefix(srv.URL, "http://")
	gw, err := buildGateway(backendOllama, "", "", "", host, zap.NewNop())
	require.NoError(t, err)

	names, err := gw.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:8b"}, names)
}

func TestBuildGateway_AddrOverridesEnv(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[]}`)
	}))
	defer srv.Close()

	gw, err := buildGateway(backendOllama, srv.URL, "", "", "unreachable.invalid:11434", zap.NewNop())
	require.NoError(t, err)

	_, err = gw.ListModels(context.Background())
	assert.NoError(t, err, "-addr should win over OLLAMA_HOST")
}

func TestNormalizeAddr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"127.0.0.1:11434", "http://127.0.0.1:11434"},
		{"http://127.0.0.1:11434", "http://127.0.0.1:11434"},
		{"http://127.0.0.1:11434/", "http://127.0.0.1:11434"},
		{"https://ollama.internal", "https://ollama.internal"},
		{"localhost:8080/v1", "http://localhost:8080/v1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeAddr(tt.in), "input %q", tt.in)
	}
}

func TestEffectiveModel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "mistral:7b", effectiveModel(backendOllama, "mistral:7b"))
	assert.Equal(t, "llama3.1:8b", effectiveModel(backendOllama, ""))
	assert.Equal(t, "local", effectiveModel(backendOpenAI, ""))
}

func TestModelInstalled(t *testing.T) {
	t.Parallel()
	names := []string{"llama3.1:8b", "mistral:latest"}
	assert.True(t, modelInstalled(names, "llama3.1:8b"))
	assert.True(t, modelInstalled(names, "mistral"), "untagged name matches :latest")
	assert.True(t, modelInstalled(names, "mistral:latest"))
	assert.False(t, modelInstalled(names, "llama3.1"), "tag is part of the installed name")
	assert.False(t, modelInstalled(names, "qwen2.5:7b"))
}

func TestCheckBackend_Reachable(t *testing.T) {
	t.Parallel()
	gw := &mock.Gateway{ListModelsFn: func(ctx context.Context) ([]string, error) {
		return []string{"llama3.1:8b"}, nil
	}}
	err := checkBackend(context.Background(), gw, backendOllama, "llama3.1:8b")
	assert.NoError(t, err)
}

func TestCheckBackend_Down(t *testing.T) {
	t.Parallel()
	gw := &mock.Gateway{ListModelsFn: func(ctx context.Context) ([]string, error) {
		return nil, fmt.Errorf("connection refused: %w", prdgen.ErrBackendUnavailable)
	}}
	err := checkBackend(context.Background(), gw, backendOllama, "llama3.1:8b")
	require.Error(t, err)
	assert.ErrorIs(t, err, prdgen.ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "ollama serve")
}

func TestCheckBackend_ModelNotInstalled(t *testing.T) {
	t.Parallel()
	gw := &mock.Gateway{ListModelsFn: func(ctx context.Context) ([]string, error) {
		return []string{"mistral:7b"}, nil
	}}
	err := checkBackend(context.Background(), gw, backendOllama, "llama3.1:8b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull llama3.1:8b")
}

func TestCheckBackend_OpenAIIgnoresModelName(t *testing.T) {
	t.Parallel()
	// llama.cpp style servers report the loaded weights path, not the
	// name clients send, so only connectivity is checked.
	gw := &mock.Gateway{ListModelsFn: func(ctx context.Context) ([]string, error) {
		return []string{"/models/qwen2.5-7b-instruct-q4.gguf"}, nil
	}}
	err := checkBackend(context.Background(), gw, backendOpenAI, "local")
	assert.NoError(t, err)
}

func TestBackendHint_PassesThroughOtherErrors(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("context deadline exceeded")
	err := backendHint(backendOllama, sentinel)
	assert.Equal(t, sentinel, err)
}
