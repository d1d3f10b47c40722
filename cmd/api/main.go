package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/payment"
	categoryrepo "storefront/internal/repository/category"
	favoriterepo "storefront/internal/repository/favorite"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	reviewrepo "storefront/internal/repository/review"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
	cartsvc "storefront/internal/service/cart"
	categorysvc "storefront/internal/service/category"
	favoritesvc "storefront/internal/service/favorite"
	productsvc "storefront/internal/service/product"
	reviewsvc "storefront/internal/service/review"
	usersvc "storefront/internal/service/user"
)

const tokenPurgeInterval = 10 * time.Minute

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		os.Exit(logging.Fail(logger, "api stopped", err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	productService := productsvc.New(productRepo)
	categoryService := categorysvc.New(categoryrepo.NewPostgres(dbpool))
	userService := usersvc.New(
		userrepo.NewPostgres(dbpool, logger),
		tokenrepo.NewPostgres(dbpool),
		usersvc.LogSender{Logger: logger.Named("sms")},
		usersvc.WithAccessTTL(cfg.AccessTokenTTL),
		usersvc.WithOTPLength(cfg.OTPLength),
		usersvc.WithLogger(logger),
	)

	gateway := payment.NewBreaker(
		payment.NewStub(cfg.PaymentApprove),
		payment.BreakerSettings{CallTimeout: cfg.PaymentTimeout},
		logger,
	)
	cartOpts := []cartsvc.Option{cartsvc.WithLogger(logger), cartsvc.WithCheckoutTimeout(cfg.CheckoutTimeout)}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, cart cache degraded", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cartOpts = append(cartOpts, cartsvc.WithCache(cache.NewRedisCache(client, cfg.CartCacheTTL)))
		logger.Info("cart cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CartCacheTTL))
	}

	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		publisher, err := events.NewRabbitPublisher(conn)
		if err != nil {
			return err
		}
		defer publisher.Close()
		cartOpts = append(cartOpts, cartsvc.WithEvents(publisher))
		logger.Info("order events enabled", zap.String("exchange", events.EventsExchange))
	}

	cartService := cartsvc.New(orderrepo.NewPostgres(dbpool, logger), productRepo, gateway, cartOpts...)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		UserSvc:     userService,
		CartSvc:     cartService,
		ProductSvc:  productService,
		CategorySvc: categoryService,
		FavoriteSvc: favoritesvc.New(favoriterepo.NewPostgres(dbpool), logger),
		ReviewSvc:   reviewsvc.New(reviewrepo.NewPostgres(dbpool, logger), logger),
		ImageDir:    cfg.ImageDir,
	}, cfg.CORSOrigins)
	if err != nil {
		return err
	}

	go purgeTokens(ctx, userService, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

func purgeTokens(ctx context.Context, users *usersvc.Service, logger *zap.Logger) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := users.PurgeExpiredTokens(ctx); err != nil {
				logger.Warn("token purge failed", zap.Error(err))
			}
		}
	}
}
