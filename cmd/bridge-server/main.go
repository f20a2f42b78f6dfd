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

	"github.com/gin-gonic/gin"

	"overbridge/internal/auth"
	"overbridge/internal/bridge"
	"overbridge/internal/enrich"
	"overbridge/internal/events"
	"overbridge/internal/history"
	"overbridge/internal/overseerr"
	"overbridge/internal/session"
	"overbridge/internal/settings"
	"overbridge/pkg/database"
	"overbridge/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := events.NewHub()
	router.GET("/ws", events.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"db_error": err.Error(),
				"clients":  stats.Clients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ready",
			"db":      "ok",
			"clients": stats.Clients,
		})
	})

	client := overseerr.NewClient("")
	sessions := session.New(client, hub)
	handler := &bridge.Handler{
		Client:   client,
		Sessions: sessions,
		Enricher: enrich.NewOrchestrator(client),
		Backfill: enrich.NewBackfiller(client),
		Settings: settings.NewRepo(db),
		History:  history.NewRepo(db),
		Hub:      hub,
	}

	api := router.Group("/api")

	authCfg := utils.LoadAuthConfig()
	if authCfg.PairingCode != "" {
		tokenSvc := auth.TokenService{
			Secret:   []byte(authCfg.JWTSecret),
			Issuer:   authCfg.JWTIssuer,
			Duration: authCfg.JWTDuration,
		}
		authRepo := auth.NewRepo(db)
		authHandler := auth.NewHandler(authRepo, tokenSvc)
		if err := authHandler.SeedPassphrase(context.Background(), authCfg.PairingCode); err != nil {
			log.Fatalf("seed pairing code: %v", err)
		}
		authHandler.RegisterRoutes(router.Group("/auth"))
		api.Use(auth.AuthMiddleware(tokenSvc, authRepo))
		log.Println("[main] pairing enabled, API requires a bearer token")
	}

	handler.RegisterRoutes(api)

	serverCfg := utils.LoadServerConfig()
	httpSrv := &http.Server{
		Addr:    serverCfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("bridge listening on %s", serverCfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("stopped")
}
