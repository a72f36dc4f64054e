package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/memory"
	"classroom-quiz-service/internal/infra/postgres"
	redisinfra "classroom-quiz-service/internal/infra/redis"
	transport "classroom-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// directory is what both directory backends offer.
type directory interface {
	app.ClassDirectory
	app.UserDirectory
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret not configured")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var (
		quizzes app.QuizRepository
		dir     directory
	)
	switch {
	case cfg.Postgres.URL != "":
		db := postgres.OpenBun(cfg.Postgres.URL)
		defer db.Close()
		if err := Migrate(ctx, db); err != nil {
			return err
		}
		pgDir := postgres.NewDirectory(db)
		if err := seedPostgres(ctx, pgDir, cfg); err != nil {
			return err
		}
		dir = pgDir

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		quizzes = postgres.NewQuizStore(pool)
		log.Printf("quiz store: postgres")
	case redisClient != nil:
		quizzes = redisinfra.NewQuizStore(redisClient)
		dir = memory.NewDirectory(cfg.Classes(), cfg.Users())
		log.Printf("quiz store: redis")
	default:
		quizzes = memory.NewQuizStore()
		dir = memory.NewDirectory(cfg.Classes(), cfg.Users())
		log.Printf("quiz store: memory")
	}

	var feeds app.FeedRegistry = memory.NewFeedRegistry()
	if redisClient != nil {
		feeds = redisinfra.NewFeedRegistry(redisClient)
	}

	classes := memory.NewClassCache(dir, config.TTLDuration(cfg.Quiz.ClassCacheTTL, time.Minute))
	service := app.NewQuizService(quizzes, classes, dir,
		app.WithGraceWindow(config.TTLDuration(cfg.Quiz.GraceWindow, domain.DefaultGraceWindow)),
		app.WithMaxRetries(cfg.Quiz.MaxRetries),
		app.WithFeeds(feeds),
	)
	router := transport.NewRouter(service, auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer), transport.Options{
		Production: cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: it would cut off live results websockets
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedPostgres upserts the directory section of the config.
func seedPostgres(ctx context.Context, dir *postgres.Directory, cfg config.Config) error {
	for _, u := range cfg.Users() {
		if err := dir.PutUser(ctx, u); err != nil {
			return err
		}
	}
	for _, c := range cfg.Classes() {
		if err := dir.PutClass(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
