package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/pawshop/internal/config"
	"github.com/zhouzirui/pawshop/internal/handler"
	"github.com/zhouzirui/pawshop/internal/model/catalog"
	"github.com/zhouzirui/pawshop/internal/service/assistant"
	"github.com/zhouzirui/pawshop/internal/service/session"
	"github.com/zhouzirui/pawshop/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	items := catalog.NewMemoryStore(catalog.Seed())
	sessionSvc := session.NewService()

	assistantSvc, err := assistant.NewService(ctx, items, cfg.AI)
	if err != nil {
		log.Printf("warning: failed to initialize chat model: %v", err)
		log.Println("continuing with catalog answers only - 请检查 Ark 模型相关环境变量")
		assistantSvc, _ = assistant.NewService(ctx, items, config.AIConfig{})
	} else if assistantSvc.ModelEnabled() {
		log.Println("AI assistant initialized successfully")
	} else {
		log.Println("Ark 凭证未配置，使用目录检索回答问题")
	}

	var widgetStore storage.Store
	if cfg.Server.WidgetEnabled {
		widgetStore, err = storage.Open(cfg.Server.WidgetStoreDriver, cfg.Server.WidgetStorePath)
		if err != nil {
			log.Printf("warning: failed to open widget store: %v", err)
			log.Println("continuing without the chat widget")
			widgetStore = nil
		} else {
			defer storage.Close(widgetStore)
			log.Printf("chat widget enabled (store=%s)", cfg.Server.WidgetStoreDriver)
		}
	}

	router := handler.NewRouter(cfg, items, sessionSvc, assistantSvc, widgetStore)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Pawshop backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
