// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	binance_service "signaltrader/internal/binance/service"
	bitget_service "signaltrader/internal/bitget/service"
	"signaltrader/internal/config"
	"signaltrader/internal/metrics"
	"signaltrader/internal/risk"
	"signaltrader/internal/signal/repository"
	signal_service "signaltrader/internal/signal/service"
	signalhttp "signaltrader/internal/signal/transport/http"
	trader_service "signaltrader/internal/trader/service"
	"signaltrader/pkg/db"
	"signaltrader/pkg/middleware"
)

var server *http.Server

func main() {
	fmt.Println("SignalTrader API starting...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Config loaded")

	metrics.InitMetrics()

	// --- ИНИЦИАЛИЗАЦИЯ СЛОЁВ ---
	var journal repository.JournalRepository
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
		log.Println("Database connected")
		journal = repository.NewPostgresJournalRepo(database)
	} else {
		log.Println("DATABASE_URL not set, signal journal disabled")
	}

	gateway := bitget_service.NewBitgetHTTPClientWithProxy(
		cfg.Bitget.APIKey, cfg.Bitget.SecretKey, cfg.Bitget.Passphrase, cfg.Bitget.ProxyAddr)
	if cfg.Bitget.BaseURL != "" {
		gateway.BaseURL = cfg.Bitget.BaseURL
	}

	executor := bitget_service.NewExecutor(gateway, cfg.Behavior.DryRun)

	// Источник цены для watcher'а
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	var priceFunc bitget_service.PriceFunc
	var wsStream *bitget_service.WebSocketPriceStream
	switch cfg.Behavior.PriceSource {
	case "bitget":
		priceFunc = bitget_service.RestPriceFunc(gateway, cfg.Behavior.Symbol)
	case "bitget-ws":
		wsStream = bitget_service.NewWebSocketPriceStream(rootCtx, cfg.Behavior.Symbol, cfg.Bitget.ProxyAddr)
		wsStream.Start()
		priceFunc = wsStream.PriceFunc()
	case "binance":
		feed := binance_service.NewPriceFeed()
		priceFunc = feed.PriceFunc(binanceSymbol(cfg.Behavior.Symbol))
	default:
		priceFunc = bitget_service.NewSyntheticPriceSource(30000, 50).PriceFunc()
	}

	watcher := bitget_service.NewPositionWatcher(priceFunc, time.Duration(cfg.Behavior.PollIntervalSec)*time.Second)

	plannerCfg := risk.PlannerConfig{
		Symbol:           cfg.Behavior.Symbol,
		EquityUSDT:       cfg.Risk.EquityUSDT,
		SplitScalpingPct: cfg.Risk.SplitScalpingPct,
		SplitIntradayPct: cfg.Risk.SplitIntradayPct,
		RiskLegPct:       cfg.Risk.RiskLegPct,
		RiskTotalCapPct:  cfg.Risk.RiskTotalCapPct,
		LeverageMin:      cfg.Risk.LeverageMin,
		BreakevenAfterTP: cfg.Behavior.BreakevenAfterTP,
	}

	traderService := trader_service.NewService(
		signal_service.NewParser(),
		signal_service.NewRouter(),
		plannerCfg,
		executor,
		watcher,
		journal,
	)
	watcher.SetBreakevenHandler(traderService.HandleBreakeven)
	go watcher.Start()

	handler := signalhttp.NewHandler(traderService, journal, watcher, cfg)

	// --- РОУТЕР ---
	r := chi.NewRouter()

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://localhost:3000", "http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.ValidateRequest)
	r.Use(middleware.GlobalRateLimiter.Middleware)

	// Публичные роуты
	r.Post("/auth/login", handler.Login)
	r.Get("/health", handler.Health)

	// 🔐 Защищённая группа маршрутов
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.JWTAuth(cfg.Server.JWTSecret))

		pr.Post("/api/signals", handler.ProcessSignal)
		pr.Get("/api/signals", handler.ListSignals)
		pr.Get("/api/plans", handler.ActivePlans)
	})

	// Метрики под basic auth
	r.Group(func(mr chi.Router) {
		mr.Use(middleware.BasicAuth(cfg.Server.MetricsUser, cfg.Server.MetricsPassword))
		mr.Handle("/metrics", promhttp.Handler())
	})

	server = &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	log.Printf("Server running on :%s (dry_run=%v, price_source=%s)",
		cfg.Server.Port, cfg.Behavior.DryRun, cfg.Behavior.PriceSource)

	// Graceful shutdown на сигналы ОС
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Println("Shutdown signal received, starting graceful shutdown")
		watcher.Stop()
		if wsStream != nil {
			wsStream.Stop()
		}
		shutdownServer()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// binanceSymbol отрезает суффикс контракта Bitget: BTCUSDT_UMCBL -> BTCUSDT
func binanceSymbol(symbol string) string {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '_' {
			return symbol[:i]
		}
	}
	return symbol
}

func shutdownServer() {
	log.Println("Starting server shutdown process")

	// Создаем контекст с таймаутом
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped")
}
