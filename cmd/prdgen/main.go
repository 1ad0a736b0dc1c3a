// Command prdgen turns a short discovery conversation into a structured
// PRD, generated section by section on a local model.
//
// Usage:
//
//	prdgen [flags]
//	OLLAMA_HOST=192.168.1.20:11434 prdgen [flags]
//
// Flags:
//
//	-backend string     Backend: ollama, openai (default "ollama")
//	-addr string        Backend base URL (overrides OLLAMA_HOST for ollama)
//	-model string       Model name (default: backend-specific)
//	-api-key string     Bearer token for OpenAI-compatible servers that require one
//	-export-dir string  Directory exported documents are written to (default ".")
//	-list-models        List the models the backend serves and exit
//	-log string         Log file path (default: user cache directory)
//	-debug              Log at debug level
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prdlabs/prdgen"
	bt "github.com/prdlabs/prdgen/bubbletea"
	"github.com/prdlabs/prdgen/discovery"
	"github.com/prdlabs/prdgen/logging"
	"github.com/prdlabs/prdgen/ollama"
	"github.com/prdlabs/prdgen/openai"
	"github.com/prdlabs/prdgen/selector"
	"github.com/prdlabs/prdgen/synthesis"
)

const (
	backendOllama = "ollama"
	backendOpenAI = "openai"

	// startupTimeout bounds the pre-flight connectivity check so a dead
	// backend fails fast instead of hanging the launch.
	startupTimeout = 5 * time.Second
)

// gateway is what the command needs from a backend client: generation
// plus model enumeration for the pre-flight check and -list-models.
type gateway interface {
	prdgen.Gateway
	prdgen.ModelLister
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "prdgen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse flags.
	var (
		backendFlag = flag.String("backend", backendOllama, "Backend: ollama, openai")
		addr        = flag.String("addr", "", "Backend base URL (overrides OLLAMA_HOST for ollama)")
		model       = flag.String("model", "", "Model name (backend default if omitted)")
		apiKey      = flag.String("api-key", "", "Bearer token for OpenAI-compatible servers")
		exportDir   = flag.String("export-dir", ".", "Directory exported documents are written to")
		listModels  = flag.Bool("list-models", false, "List the models the backend serves and exit")
		logPath     = flag.String("log", "", "Log file path (default: user cache directory)")
		debug       = flag.Bool("debug", false, "Log at debug level")
	)
	flag.Parse()

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The TUI owns the terminal, so diagnostics go to a file.
	path := *logPath
	if path == "" {
		var err error
		path, err = logging.DefaultPath()
		if err != nil {
			return err
		}
	}
	logger, err := logging.New(path, *debug)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush on exit

	// Build the backend client. Env vars are read here and passed as values.
	gw, err := buildGateway(*backendFlag, *addr, *model, *apiKey, os.Getenv("OLLAMA_HOST"), logger)
	if err != nil {
		return err
	}

	if *listModels {
		names, err := gw.ListModels(ctx)
		if err != nil {
			return backendHint(*backendFlag, err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	// Fail before the TUI takes over the terminal if the backend is
	// unreachable or the requested model is not installed.
	if err := checkBackend(ctx, gw, *backendFlag, effectiveModel(*backendFlag, *model)); err != nil {
		return err
	}

	mgr := prdgen.NewManager(
		discovery.New(gw, discovery.WithLogger(logger)),
		selector.New(gw, selector.WithLogger(logger)),
		synthesis.New(gw, synthesis.WithLogger(logger)),
		prdgen.NewHistory(),
		prdgen.WithLogger(logger),
	)

	m := bt.New(mgr, mgr.NewSession(), prdgen.DefaultTheme())
	m.ExportDir = *exportDir
	if err := bt.Run(ctx, m); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

func buildGateway(backend, addr, model, apiKey, ollamaHost string, logger *zap.Logger) (gateway, error) {
	switch backend {
	case backendOllama:
		opts := []ollama.Option{ollama.WithLogger(logger)}
		if addr == "" {
			addr = ollamaHost
		}
		if addr != "" {
			opts = append(opts, ollama.WithBaseURL(normalizeAddr(addr)))
		}
		if model != "" {
			opts = append(opts, ollama.WithModel(model))
		}
		return ollama.New(opts...), nil
	case backendOpenAI:
		opts := []openai.Option{openai.WithLogger(logger)}
		if addr != "" {
			opts = append(opts, openai.WithBaseURL(normalizeAddr(addr)))
		}
		if model != "" {
			opts = append(opts, openai.WithModel(model))
		}
		if apiKey != "" {
			opts = append(opts, openai.WithAPIKey(apiKey))
		}
		return openai.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", backend, backendOllama, backendOpenAI)
	}
}

// normalizeAddr accepts the bare host:port form OLLAMA_HOST allows and
// turns it into a base URL.
func normalizeAddr(addr string) string {
	addr = strings.TrimRight(addr, "/")
	if strings.Contains(addr, "://") {
		return addr
	}
	return "http://" + addr
}

func effectiveModel(backend, model string) string {
	if model != "" {
		return model
	}
	if backend == backendOpenAI {
		return openai.DefaultModel
	}
	return ollama.DefaultModel
}

// checkBackend lists the backend's models as a connectivity probe. For
// Ollama it also verifies the requested model is installed, because a
// missing model otherwise surfaces as a failure on the first question.
// OpenAI-compatible servers report whatever name they loaded the weights
// under, so only connectivity is checked there.
func checkBackend(ctx context.Context, gw gateway, backend, model string) error {
	cctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	names, err := gw.ListModels(cctx)
	if err != nil {
		return backendHint(backend, err)
	}
	if backend != backendOllama {
		return nil
	}
	if modelInstalled(names, model) {
		return nil
	}
	return fmt.Errorf("model %q is not installed (try: ollama pull %s)", model, model)
}

// modelInstalled reports whether model names one of names. Ollama treats
// an untagged name as the :latest tag, so "llama3.1" matches
// "llama3.1:latest".
func modelInstalled(names []string, model string) bool {
	for _, name := range names {
		if name == model || strings.TrimSuffix(name, ":latest") == model {
			return true
		}
	}
	return false
}

// backendHint augments a connectivity failure with the command that
// usually fixes it.
func backendHint(backend string, err error) error {
	if !errors.Is(err, prdgen.ErrBackendUnavailable) {
		return err
	}
	if backend == backendOllama {
		return fmt.Errorf("%w (is Ollama running? try: ollama serve)", err)
	}
	return fmt.Errorf("%w (is the server running at the configured address?)", err)
}
