package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/vedran77/huddle/internal/app"
	"github.com/vedran77/huddle/internal/config"
	"github.com/vedran77/huddle/internal/imagehost"
	"github.com/vedran77/huddle/internal/policy"
	"github.com/vedran77/huddle/internal/service"
	"github.com/vedran77/huddle/internal/transport/http/handlers"
	"github.com/vedran77/huddle/internal/transport/http/middleware"
	"github.com/vedran77/huddle/internal/transport/ws"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// Stores
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			glog.Warningf("closing store: %v", err)
		}
	}()

	feed, redisClient, err := app.OpenFeed(cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	observed := app.Observe(store, feed)

	engine, err := policy.New(ctx)
	if err != nil {
		return fmt.Errorf("preparing policy: %w", err)
	}

	// Services
	images := imagehost.NewClient(cfg.ImageHost.URL, cfg.ImageHost.APIKey)
	profileService := service.NewProfileService(observed.Users, images)
	authService := service.NewAuthService(observed.Accounts, profileService, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	friendService := service.NewFriendService(observed.Users, observed.Requests, feed, engine)
	chatService := service.NewChatService(observed.Messages, observed.Users)
	syncManager := service.NewSyncManager(friendService)

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()
	chatService.SetNotifier(ws.NewHubNotifier(hub))

	proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parsing TRUSTED_PROXIES: %w", err)
	}
	requestLimiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window, "friend_requests", true, proxies)
	messageLimiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.Messages, cfg.RateLimit.Window, "chat_messages", true, proxies)

	routes := handlers.Routes{
		Auth:          handlers.NewAuthHandler(authService),
		Profile:       handlers.NewProfileHandler(profileService),
		Friends:       handlers.NewFriendHandler(friendService),
		Chat:          handlers.NewChatHandler(chatService),
		WS:            ws.ServeWS(hub, authService, syncManager, cfg.Server.AllowedOrigins),
		RequireAuth:   middleware.Auth(authService),
		LimitRequests: requestLimiter.Middleware,
		LimitMessages: messageLimiter.Middleware,
	}
	handler := middleware.RequestLogger(middleware.CORS(cfg.Server.AllowedOrigins)(routes.Mux()))

	// No read/write timeouts: hijacked websocket connections keep them.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		glog.Infof("Starting server on %s (store=%s feed=%s)", srv.Addr, cfg.Store.Driver, cfg.Feed.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	glog.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
