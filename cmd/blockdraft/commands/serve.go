package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/livetemplate/blockdraft/internal/config"
	"github.com/livetemplate/blockdraft/internal/server"
)

// ServeCommand implements the serve command.
func ServeCommand(args []string) error {
	// Parse arguments
	dir := "."
	var configPath string
	var port string
	var host string
	var watch bool
	var db string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--watch" || arg == "-w" {
			watch = true
		} else if arg == "--port" || arg == "-p" {
			if i+1 < len(args) {
				port = args[i+1]
				i++
			}
		} else if arg == "--host" {
			if i+1 < len(args) {
				host = args[i+1]
				i++
			}
		} else if arg == "--config" || arg == "-c" {
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		} else if arg == "--db" {
			if i+1 < len(args) {
				db = args[i+1]
				i++
			}
		} else if !strings.HasPrefix(arg, "-") {
			// Positional argument (directory)
			dir = arg
		}
	}

	// Check if directory exists
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", dir)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	// Load configuration
	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("📝 Using config: %s\n", configPath)
	} else {
		cfg, err = config.LoadFromDir(absDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	// CLI flags override config
	if port != "" {
		portInt, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port: %s", port)
		}
		cfg.Server.Port = portInt
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if db != "" {
		if err := applyStorageOverride(cfg, db); err != nil {
			return err
		}
	}

	fmt.Printf("📨 Blockdraft Template Editor\n\n")
	fmt.Printf("Serving: %s\n", absDir)
	fmt.Printf("Storage: %s\n", cfg.Storage.GetDriver())

	// Create server
	srv, err := server.NewWithConfig(absDir, cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer srv.Close()

	// Discover workspace templates
	if err := srv.Discover(); err != nil {
		return fmt.Errorf("failed to discover templates: %w", err)
	}

	templates, err := srv.Templates(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	fmt.Printf("\nTemplates available:\n")
	if len(templates) == 0 {
		fmt.Printf("  (none yet - create one at /)\n")
	}
	for _, tpl := range templates {
		fmt.Printf("  %-30s /edit/%s\n", tpl.Name, tpl.ID)
	}

	// Enable watch mode if requested
	if watch {
		if err := srv.EnableWatch(cfg.Server.Debug); err != nil {
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
		fmt.Printf("\n👀 Watch mode enabled - template files auto-reload on changes\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, limiterDone := srv.Handler(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("\n🌐 Editor running at http://%s\n", addr)
	fmt.Printf("🔌 REST API at /api/templates\n")
	fmt.Printf("⚡ Live preview over /ws/{id}\n")
	if len(cfg.Sinks) > 0 {
		fmt.Printf("📤 %d delivery sink(s) configured\n", len(cfg.Sinks))
	}
	fmt.Printf("Press Ctrl+C to stop\n\n")

	httpSrv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Server] Shutdown error: %v", err)
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-limiterDone
	fmt.Println("👋 Stopped")
	return nil
}

// applyStorageOverride parses a --db value of the form
// driver[:location] and applies it to the config.
func applyStorageOverride(cfg *config.Config, db string) error {
	driver, location, _ := strings.Cut(db, ":")
	switch driver {
	case "memory":
		cfg.Storage = config.StorageConfig{Driver: "memory"}
	case "sqlite":
		cfg.Storage = config.StorageConfig{Driver: "sqlite", Path: location}
	case "postgres":
		if location == "" {
			return fmt.Errorf("--db postgres requires a connection string: --db postgres:<dsn>")
		}
		cfg.Storage = config.StorageConfig{Driver: "postgres", DSN: location}
	default:
		return fmt.Errorf("unknown storage driver: %s (valid: memory, sqlite, postgres)", driver)
	}
	return nil
}

func init() {
	log.SetFlags(0) // Remove timestamp from logs
}
