package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-team/backend/config"
	"chat-team/backend/database"
	"chat-team/backend/events"
	"chat-team/backend/handlers"
	"chat-team/backend/middleware"
	"chat-team/backend/services"
	"chat-team/backend/websocket"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors" // 引入 CORS 庫
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()

	// 成員事件同時推送給 WebSocket 訂閱者與 Redis
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	dispatcher := events.MultiDispatcher{hub}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		dispatcher = append(dispatcher, events.NewRedisPublisher(rdb, cfg.RedisChannelPrefix, logger))
		log.Printf("Publishing member events to Redis at %s", cfg.RedisAddr)
	}

	h := handlers.New(
		services.NewUserService(store, cfg.JWTSecret, cfg.JWTTTL, logger),
		services.NewChatService(store, store, dispatcher, logger),
		services.NewChatMemberService(store, store, store, dispatcher, logger),
		logger,
	)

	router := mux.NewRouter()
	handlers.RegisterRoutes(
		router,
		h,
		middleware.JWTMiddleware(cfg.JWTSecret, logger),
		middleware.Handle(logger, websocket.HandleConnections(hub, store, cfg.JWTSecret)),
	)

	// 實際生產環境中，應該將 ALLOWED_ORIGINS 限制為前端網域
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// RequestLogger 在最外層，連同未匹配的路由與 ErrorHandler 寫出的 500 一起記錄
	handler := middleware.RequestLogger(logger)(middleware.ErrorHandler(logger)(c.Handler(router)))

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s (store: %s)", serverAddr, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// 如果錯誤不是因為主動關閉伺服器，就記錄錯誤並結束程式
			log.Fatalf("Could not listen on %s: %v", serverAddr, err)
		}
	}()

	//當按下 Ctrl+C，程式會收到 SIGINT
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %s, shutting down server...", sig)

	//最多等30秒關閉，避免資料損壞，請求中斷
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	stop()

	log.Println("Server exited gracefully.")
}

// openStore 依 STORE_DRIVER 建立資料層
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	if cfg.StoreDriver == config.StoreSQLite {
		store, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("Using SQLite store at %s", cfg.SQLitePath)
		return store, nil
	}

	store, err := database.ConnectMongoDB(ctx, cfg.MongoDBURI, cfg.DBName)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to MongoDB database %s", cfg.DBName)
	return store, nil
}
