package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/identity-broker/internal/cache"
	"github.com/vasapolrittideah/identity-broker/internal/config"
	"github.com/vasapolrittideah/identity-broker/internal/handler"
	"github.com/vasapolrittideah/identity-broker/internal/mailer"
	"github.com/vasapolrittideah/identity-broker/internal/provider"
	"github.com/vasapolrittideah/identity-broker/internal/repository"
	"github.com/vasapolrittideah/identity-broker/internal/security"
	"github.com/vasapolrittideah/identity-broker/internal/token"
	"github.com/vasapolrittideah/identity-broker/internal/usecase"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load(&logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	identities, resetTokens := buildStores(ctx, cfg, &logger)
	oracle := buildProvider(cfg)

	issuer := token.NewIssuer(
		cfg.Token.SigningKey,
		cfg.Token.Issuer,
		cfg.Token.Audience,
		cfg.Token.ResetTokenTTL,
	)
	hasher := security.NewHasher()
	tokens := cache.NewTokenCache(cfg.Federation.CacheTTL)

	sessions := usecase.NewSessionUsecase(identities, oracle, issuer, hasher, tokens, &logger)
	users := usecase.NewUserUsecase(identities, oracle, tokens, &logger)

	var resets usecase.PasswordResetUsecase
	if cfg.PasswordReset.Enabled {
		resets = usecase.NewPasswordResetUsecase(
			identities,
			resetTokens,
			issuer,
			hasher,
			mailer.NewMailer(&logger),
			cfg.PasswordReset.URL,
			&logger,
		)
	}

	h := handler.NewHandler(sessions, users, resets, issuer, &logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("identity broker listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func buildStores(
	ctx context.Context,
	cfg *config.Config,
	logger *zerolog.Logger,
) (repository.IdentityRepository, repository.ResetTokenRepository) {
	switch cfg.Store.Driver {
	case "mongo":
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.Store.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to mongodb")
		}
		db := client.Database(cfg.Store.MongoDatabase)
		return repository.NewIdentityMongoRepository(ctx, logger, db),
			repository.NewResetTokenMongoRepository(ctx, logger, db)
	default:
		return repository.NewFileStore(cfg.Store.FilePath, logger),
			repository.NewFileResetTokenStore(cfg.Store.ResetTokenPath)
	}
}

func buildProvider(cfg *config.Config) provider.FederatedProvider {
	switch cfg.Federation.Provider {
	case "google":
		return provider.NewGoogleProvider(cfg.Federation.GoogleClientID)
	default:
		return provider.NewGraphProvider(
			cfg.Federation.Graph.TenantID,
			cfg.Federation.Graph.ClientID,
			cfg.Federation.Graph.ClientSecret,
			cfg.Federation.Graph.Scopes,
		)
	}
}
