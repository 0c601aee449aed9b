package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/api"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/config"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/interview"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/llm"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/profile"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/retrieval"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/session"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the twind server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running twind server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show twind system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "twind.pid")
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

func runServer() error {
	fmt.Fprintf(os.Stderr, "twind version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("twind is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("twind is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open stores.
	profiles, err := profile.OpenStore(filepath.Join(cfg.Storage.DataDir, "users.json"))
	if err != nil {
		return fmt.Errorf("opening profile store: %w", err)
	}

	backend := llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ChatModel, cfg.OpenAI.EmbedModel)

	vectors, err := retrieval.OpenStore(filepath.Join(cfg.Storage.DataDir, "vectors.json"), backend)
	if err != nil {
		return fmt.Errorf("opening embedding store: %w", err)
	}

	turnLog, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening turn log: %w", err)
	}
	defer func() {
		if err := turnLog.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing turn log: %v\n", err)
		}
	}()

	// Build the engine.
	retriever := retrieval.NewRetriever(backend, vectors, cfg.Retrieval.Threshold)
	sessions := session.NewStore(cfg.Session.MaxSessions)
	engine := interview.NewEngine(profiles, retriever, sessions, backend, turnLog, llm.Options{
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	})

	// Periodic idle-session sweep.
	idleTimeout, err := cfg.SessionIdleTimeout()
	if err != nil {
		return err
	}
	go func() {
		ticker := time.NewTicker(idleTimeout / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.EvictIdle(idleTimeout); n > 0 {
					slog.Info("evicted idle sessions", "count", n)
				}
			}
		}
	}()

	handler := api.NewAppHandler(api.AppDeps{
		Profiles: profiles,
		Vectors:  vectors,
		Engine:   engine,
		Turns:    turnLog,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Profiles: profiles,
		Engine:   engine,
		Turns:    turnLog,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "twind listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
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
		printError("twind is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop twind (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to twind (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Chat model", "%s", cfg.OpenAI.ChatModel)
	printStatus("Embed model", "%s", cfg.OpenAI.EmbedModel)
	printStatus("Threshold", "%.2f", cfg.Retrieval.Threshold)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
