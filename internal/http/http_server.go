package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/atlasprotocol/deposit-relayer/internal/config"
	"github.com/atlasprotocol/deposit-relayer/internal/params"
	"github.com/atlasprotocol/deposit-relayer/internal/retry"
)

type HTTPServer struct {
	retryService *retry.Service
	unstaking    *params.UnstakingPeriodResolver
}

func NewHTTPServer(retryService *retry.Service, unstaking *params.UnstakingPeriodResolver) *HTTPServer {
	return &HTTPServer{retryService: retryService, unstaking: unstaking}
}

func (hs *HTTPServer) Start(ctx context.Context) {
	r := gin.Default()

	r.GET("/api/v1/status", hs.handleStatus)
	r.POST("/api/v1/deposit/retry", hs.handleDepositRetry)

	addr := ":" + config.AppConfig.HTTPPort
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Infof("HTTP server is running on port %s", config.AppConfig.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}
	log.Info("HTTP server stopped")
}

func (hs *HTTPServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"unstaking_period_ms": hs.unstaking.GetUnstakingPeriod(c.Request.Context()),
	})
}
