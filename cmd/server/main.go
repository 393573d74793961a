package main

import (
	"context"
	"log"

	config "sales-forecaster/configs"
	"sales-forecaster/pkg/handlers"
	"sales-forecaster/pkg/services"

	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()
	ui, err := config.LoadDashboardConfig(cfg.DashboardConfig)
	if err != nil {
		log.Fatalf("Failed to load dashboard config: %v", err)
	}

	deps := handlers.NewDependencies(cfg, ui)

	if files, err := services.ListModelFiles(cfg.ModelsDir); err != nil {
		log.Printf("⚠️ [起動] モデルディレクトリを読めません: %v", err)
	} else {
		log.Printf("📦 [起動] %s に %d 件のモデルファイル", cfg.ModelsDir, len(files))
	}

	// ファイル更新時のキャッシュ破棄（既定では無効）
	if cfg.WatchArtifacts {
		watcher, err := services.NewArtifactWatcher(
			deps.Dashboard.Artifacts(),
			deps.Dashboard.Models(),
			deps.Dashboard.Datasets(),
		)
		if err != nil {
			log.Printf("⚠️ [監視] ウォッチャーの作成に失敗: %v", err)
		} else {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			defer watcher.Stop()
			if err := watcher.Start(ctx); err != nil {
				log.Printf("⚠️ [監視] 監視の開始に失敗: %v", err)
			}
		}
	}

	r, err := handlers.NewRouter(deps)
	if err != nil {
		log.Fatalf("Failed to initialize router: %v", err)
	}

	log.Printf("Starting Live Sales Forecaster on :%s (env=%s)", cfg.Port, cfg.Environment)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
