package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-proctor-service/internal/app"
	"quiz-proctor-service/internal/config"
	"quiz-proctor-service/internal/domain"
	"quiz-proctor-service/internal/infra/memory"
	"quiz-proctor-service/internal/infra/postgres"
	redisinfra "quiz-proctor-service/internal/infra/redis"
	transport "quiz-proctor-service/internal/transport/http"
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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
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
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	service := app.NewAttemptService(buildStores(cfg, redisClient, pool))

	var sweeper *app.Sweeper
	if interval := config.Duration(cfg.Quiz.Sweep, 0); interval > 0 {
		sweeper = app.NewSweeper(service, interval)
		if err := sweeper.Start(); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	apiHandler := transport.NewAPIHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	apiHandler.Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz proctor service on :%s", finalPort)
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

// buildStores picks the persistence backend: Postgres when configured, Redis
// next, in-memory with sample data otherwise. The question cache layers over
// whichever loader is available.
func buildStores(cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool) app.Stores {
	questionTTL := config.Duration(cfg.Quiz.QuestionTTL, 10*time.Minute)

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = postgres.NewQuestionStore(pool)
	}

	var questions app.QuestionStore
	if redisClient != nil {
		questions = redisinfra.NewQuestionStore(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionStore(loader, questionTTL)
	}

	stores := app.Stores{Questions: questions}
	switch {
	case pool != nil:
		stores.Participants = postgres.NewParticipantStore(pool)
		stores.Violations = postgres.NewViolationStore(pool)
		stores.Submissions = postgres.NewSubmissionStore(pool)
		stores.Settings = postgres.NewSettingsStore(pool)
	case redisClient != nil:
		stores.Participants = redisinfra.NewParticipantStore(redisClient)
		stores.Violations = redisinfra.NewViolationStore(redisClient)
		stores.Submissions = redisinfra.NewSubmissionStore(redisClient)
		stores.Settings = redisinfra.NewSettingsStore(redisClient)
	default:
		stores.Participants = memory.NewParticipantStore()
		stores.Violations = memory.NewViolationStore()
		stores.Submissions = memory.NewSubmissionStore()
		stores.Settings = memory.NewSettingsStore(domain.QuizSettings{
			DurationMinutes: 30,
			IsActive:        true,
			MaxViolations:   3,
		})
	}
	return stores
}

// sampleQuestions provides a minimal bank for running without a database.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "q1",
			Text:          "What is 2 + 2?",
			OptionA:       "3",
			OptionB:       "4",
			OptionC:       "5",
			OptionD:       "22",
			CorrectAnswer: "B",
			Marks:         1,
			IsActive:      true,
		},
		{
			ID:            "q2",
			Text:          "Which planet is closest to the sun?",
			OptionA:       "Mercury",
			OptionB:       "Venus",
			OptionC:       "Earth",
			OptionD:       "Mars",
			CorrectAnswer: "A",
			Marks:         1,
			IsActive:      true,
		},
	}
}
