package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"trailledger-backend/internal/platform/auth"
	"trailledger-backend/internal/platform/cache"
	"trailledger-backend/internal/platform/db"
	"trailledger-backend/internal/platform/events"
	"trailledger-backend/internal/rental/bikes"
	"trailledger-backend/internal/rental/labels"
	"trailledger-backend/internal/rental/parkconfig"
	"trailledger-backend/internal/rental/rentals"
	"trailledger-backend/internal/rental/reports"
)

func main() {
	// .env は無ければ無いでよい（本番は環境変数直渡し）
	_ = godotenv.Load()

	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if mode != "dev" && mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "X-Cache"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		log.Println("[WARN] jwt_secret is empty")
	}

	// イベント発行（ブローカー未設定なら黙って無効）
	var sink rentals.EventSink
	pub := events.NewPublisher(cfg.Broker.URL)
	if pub.Enabled() {
		sink = pub
		log.Println("[INFO] event publisher enabled")
	}

	// レスポンスキャッシュ（Redis未設定なら素通し）
	rdb := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if rdb != nil {
		log.Println("[INFO] response cache enabled")
	}

	bikeSvc := bikes.NewService(bikes.NewStore(conn))
	configSvc := parkconfig.NewService(parkconfig.NewStore(conn))
	rentalSvc := rentals.NewService(rentals.NewMySQLStore(conn), configSvc, sink)
	reportSvc := reports.NewService(rentalSvc)
	labelSvc := labels.NewService(bikeSvc)

	// /api/v1
	authSvc := auth.NewService(conn, secret)
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, authSvc)

	admin := r.Group("/api/v1")
	admin.Use(auth.RequireAuth(secret), auth.RequireRole("admin"))
	auth.RegisterAccountRoutes(admin, authSvc)

	protected := r.Group("/api/v1")
	protected.Use(auth.RequireAuth(secret))
	if rdb != nil {
		// 一覧系GETだけ短寿命キャッシュ。未返却一覧は鮮度が命なので対象外
		protected.Use(cache.GETCache(rdb, 30*time.Second,
			"/api/v1/bikes",
			"/api/v1/rentals/history",
			"/api/v1/reports",
		))
	}
	bikes.RegisterRoutes(protected, bikeSvc)
	parkconfig.RegisterRoutes(protected, configSvc)
	rentals.RegisterRoutes(protected, rentalSvc)
	reports.RegisterRoutes(protected, reportSvc)
	labels.RegisterRoutes(protected, labelSvc)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
