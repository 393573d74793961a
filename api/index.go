package handler

import (
	"log"
	"net/http"
	"sync"

	config "sales-forecaster/configs"
	"sales-forecaster/pkg/handlers"

	"github.com/gin-gonic/gin"
)

var (
	app     *gin.Engine
	initErr error
	once    sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
// モデル・データセットのキャッシュはこのインスタンスが生きている間だけ共有されます。
func setupApp() (*gin.Engine, error) {
	once.Do(func() {
		log.Printf("🟢 [setupApp] Initializing Gin application")

		// 環境変数はデプロイ先の設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg := config.LoadConfig()
		ui, err := config.LoadDashboardConfig(cfg.DashboardConfig)
		if err != nil {
			initErr = err
			return
		}

		app, initErr = handlers.NewRouter(handlers.NewDependencies(cfg, ui))
	})
	return app, initErr
}

// Handler はサーバーレス環境からのすべてのリクエストを処理するエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	app, err := setupApp()
	if err != nil {
		log.Printf("❌ [Handler] 初期化に失敗: %v", err)
		http.Error(w, "service initialization failed", http.StatusInternalServerError)
		return
	}
	app.ServeHTTP(w, r)
}
