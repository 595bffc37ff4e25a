package main

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tmaxwell-dev/authgate"
	"github.com/tmaxwell-dev/authgate/httpapi"
	"github.com/tmaxwell-dev/authgate/store/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.With().Str("service", "authgated").Logger()

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("authgated exited")
	}
}

func run(logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	secret, err := signingSecret()
	if err != nil {
		return err
	}

	cfg := authgate.DefaultConfig()
	cfg.Token.SigningSecret = secret
	if d, ok := envSeconds("AUTHGATE_SESSION_TTL"); ok {
		cfg.Token.SessionTTL = d
	}
	if d, ok := envSeconds("AUTHGATE_REFRESH_TTL"); ok {
		cfg.Token.RefreshTTL = d
	}
	if d, ok := envSeconds("AUTHGATE_TWOSTEP_TTL"); ok {
		cfg.Token.TwoStepTTL = d
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		ConnString:  os.Getenv("AUTHGATE_DATABASE_URL"),
		AutoMigrate: os.Getenv("AUTHGATE_AUTO_MIGRATE") == "true",
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisAddr := os.Getenv("AUTHGATE_REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("AUTHGATE_REDIS_PASSWORD"),
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The engine degrades to the durable path on cache outage, so a
		// cold Redis only warrants a warning at startup.
		logger.Warn().Err(err).Str("addr", redisAddr).Msg("redis unreachable at startup")
	}

	principals := postgres.NewPrincipalStore(pool)
	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSessionRecords(postgres.NewSessionStore(pool)).
		WithPrincipalDirectory(principals).
		WithBookkeeper(principals).
		WithAuditSink(authgate.NewJSONWriterSink(os.Stdout)).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	router := httpapi.NewServer(engine, logger).Router(httpapi.Config{
		AllowedOrigins: splitList(os.Getenv("AUTHGATE_ALLOWED_ORIGINS")),
	})

	listenAddr := os.Getenv("AUTHGATE_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", listenAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// signingSecret reads AUTHGATE_SIGNING_SECRET, accepting either a raw string
// or a base64-encoded value prefixed with "base64:".
func signingSecret() ([]byte, error) {
	raw := os.Getenv("AUTHGATE_SIGNING_SECRET")
	if raw == "" {
		return nil, errors.New("AUTHGATE_SIGNING_SECRET is required")
	}
	if encoded, ok := strings.CutPrefix(raw, "base64:"); ok {
		secret, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.New("AUTHGATE_SIGNING_SECRET is not valid base64")
		}
		return secret, nil
	}
	return []byte(raw), nil
}

func envSeconds(name string) (time.Duration, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		log.Warn().Str("var", name).Str("value", raw).Msg("ignoring invalid duration")
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
