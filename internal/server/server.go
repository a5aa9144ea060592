package server

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shinyyama/chatshop-backend/internal/config"
	"github.com/shinyyama/chatshop-backend/internal/handler"
	appmw "github.com/shinyyama/chatshop-backend/internal/middleware"
	"github.com/shinyyama/chatshop-backend/internal/repository"
	"github.com/shinyyama/chatshop-backend/internal/secure"
	"github.com/shinyyama/chatshop-backend/internal/service"
	"github.com/shinyyama/chatshop-backend/internal/txn"
	"github.com/shinyyama/chatshop-backend/internal/webhook"
	"gorm.io/gorm"
)

type Server struct {
	e      *echo.Echo
	orders service.OrderService
	sha    string
	build  string
}

func New(db *gorm.DB, cfg *config.Config, sha, buildTime string) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Signature"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			if strings.HasSuffix(u.Hostname(), "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	coord := txn.NewCoordinator(db, txn.MySQLLocker{}, txn.Config{})

	encryptor, err := buildEncryptor(cfg.FieldEncryptionKey)
	if err != nil {
		return nil, err
	}
	seen := buildSeenStore(cfg)

	var writer *kafka.Writer
	if len(cfg.KafkaBrokers) > 0 {
		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaOrderTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		}
	}

	catalogRepo := repository.NewCatalogRepository(db)
	itemRepo := repository.NewItemRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	tierRepo := repository.NewPriceTierRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifySvc := service.NewNotificationService(notificationRepo, writer)
	checkoutSvc := service.NewCheckoutService(coord, catalogRepo, tierRepo, encryptor, cfg.OrderTTL)
	orderSvc := service.NewOrderService(coord, orderRepo, encryptor, notifySvc)
	paymentSvc := service.NewPaymentService(coord, orderRepo, paymentRepo, seen, nil, notifySvc)

	catalogHandler := handler.NewCatalogHandler(catalogRepo, itemRepo, checkoutSvc)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	notificationHandler := handler.NewNotificationHandler(notifySvc)
	webhookHandler := handler.NewWebhookHandler(
		paymentSvc,
		webhook.NewRateLimiter(cfg.WebhookRateLimit, time.Minute),
		cfg.WebhookSecret,
		cfg.WebhookMaxBody,
	)

	authMw, err := appmw.NewAuthMiddleware(context.Background())
	if err != nil {
		e.Logger.Warnf("firebase auth unavailable, protected routes run open: %v", err)
		authMw = nil
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	// Gateway-facing endpoints live at the root; the payment provider is
	// configured with these exact paths.
	e.POST("/webhook/payment", webhookHandler.Confirm)
	e.GET("/order_status", orderHandler.Status)

	api := e.Group("/api")
	api.GET("/catalog", catalogHandler.List)
	api.GET("/catalog/:categoryId/:subcategoryId/quote", catalogHandler.Quote)

	if authMw != nil {
		api.POST("/checkout", checkoutHandler.Checkout, authMw.RequireAuth)
		api.GET("/me/orders", orderHandler.ListMine, authMw.RequireAuth)
		api.GET("/orders/:id", orderHandler.Get, authMw.RequireAuth)
		api.POST("/orders/:id/cancel", orderHandler.Cancel, authMw.RequireAuth)
		api.GET("/orders/:id/events", orderHandler.Events, authMw.RequireAuth, authMw.RequireOperator)
		api.POST("/orders/:id/ship", orderHandler.Ship, authMw.RequireAuth, authMw.RequireOperator)
		api.GET("/me/notifications", notificationHandler.List, authMw.RequireAuth)
		api.POST("/me/notifications/read", notificationHandler.MarkAllRead, authMw.RequireAuth)
	} else {
		api.POST("/checkout", checkoutHandler.Checkout)
		api.GET("/me/orders", orderHandler.ListMine)
		api.GET("/orders/:id", orderHandler.Get)
		api.POST("/orders/:id/cancel", orderHandler.Cancel)
		api.GET("/orders/:id/events", orderHandler.Events)
		api.POST("/orders/:id/ship", orderHandler.Ship)
		api.GET("/me/notifications", notificationHandler.List)
		api.POST("/me/notifications/read", notificationHandler.MarkAllRead)
	}

	return &Server{e: e, orders: orderSvc, sha: sha, build: buildTime}, nil
}

func buildEncryptor(hexKey string) (secure.FieldEncryptor, error) {
	if hexKey == "" {
		return secure.Plaintext{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode FIELD_ENCRYPTION_KEY: %w", err)
	}
	return secure.NewAESEncryptor(key)
}

func buildSeenStore(cfg *config.Config) webhook.SeenStore {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return webhook.NewRedisSeenStore(client, 0)
	}
	return webhook.NewMemorySeenStore(cfg.SeenCacheSize)
}

// Orders exposes the order service for background jobs owned by main.
func (s *Server) Orders() service.OrderService {
	return s.orders
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
