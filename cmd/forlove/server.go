package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/forlove/internal/api"
	"github.com/kalambet/forlove/internal/candidate"
	"github.com/kalambet/forlove/internal/config"
	"github.com/kalambet/forlove/internal/fallback"
	"github.com/kalambet/forlove/internal/identity"
	"github.com/kalambet/forlove/internal/orchestrator"
	"github.com/kalambet/forlove/internal/prompt"
	"github.com/kalambet/forlove/internal/proxy"
	"github.com/kalambet/forlove/internal/slots"
	"github.com/kalambet/forlove/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the generation service and management API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running forlove server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show forlove server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP over stdin/stdout; the server stops when stdin closes")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "forlove.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// setupLogging installs the default logger: debug when level says so,
// otherwise base.
func setupLogging(level string, base slog.Level) {
	logLevel := base
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "forlove version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level, slog.LevelInfo)

	if err := cfg.RequireProxyKey(); err != nil {
		return err
	}

	apiToken, err := config.GetAPIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Refuse to start twice: a live /health means another instance owns the port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("forlove is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("forlove is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	upstream := proxy.NewClientWithBaseURL(cfg.Proxy.APIKey, cfg.Proxy.BaseURL)
	svc := api.NewGenerationService(upstream, prompt.Options{
		Model:       cfg.Proxy.Model,
		Temperature: cfg.Proxy.Temperature,
		MaxTokens:   cfg.Proxy.MaxTokens,
	})

	slotStore := slots.NewStore(store)
	identityMgr := identity.NewManager(store)
	history := candidate.NewArchive(store)

	appHandler := api.NewAppHandler(api.AppDeps{
		Slots:       slotStore,
		Identity:    identityMgr,
		History:     history,
		Generations: store,
		Token:       apiToken,
	})

	topRouter := chi.NewRouter()
	topRouter.Mount("/api", appHandler)
	topRouter.Mount("/", api.NewGenerateHandler(svc))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: topRouter,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "forlove listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if withMCP {
		// MCP generations run in-process against the same service.
		orch := orchestrator.New(orchestrator.Config{
			Transport:   svc,
			Entitlement: orchestrator.StaticEntitlement(cfg.Entitlement.FullAccess),
			Fallback:    fallback.Generator{},
			Log:         store,
			MinInterval: cfg.Generator.MinInterval,
			Timeout:     cfg.Generator.Timeout,
		})
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Slots:     slotStore,
			Identity:  identityMgr,
			History:   history,
			Generator: orch,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			// stdin closed: the MCP client is gone, take the server down with it.
			stop()
			return nil
		})
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("forlove is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop forlove (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to forlove (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Endpoint", "%s", cfg.Generator.Endpoint)
	printStatus("Model", "%s", cfg.Proxy.Model)
	if cfg.Proxy.APIKey == "" {
		printStatus("Proxy key", "missing")
	} else {
		printStatus("Proxy key", "set")
	}
	printStatus("Full access", "%t", cfg.Entitlement.FullAccess)

	if running {
		if c, err := newAPIClient(); err == nil {
			var gens struct {
				Outcomes map[string]int `json:"outcomes"`
			}
			if resp, err := c.get(ctx, "/generations?limit=1"); err == nil && decodeJSON(resp, &gens) == nil {
				printStatus("Generations", "%s", outcomeSummary(gens.Outcomes))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

// outcomeSummary renders outcome counts in a fixed order, e.g.
// "12 succeeded, 3 fallback".
func outcomeSummary(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	var parts []string
	for _, k := range []orchestrator.Kind{orchestrator.Succeeded, orchestrator.Fallback} {
		if n, ok := counts[string(k)]; ok {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
