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

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/app"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/config"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/infra/memory"
	pgloader "github.com/scarzbaddy-lab/unscarred-complete-site/internal/infra/postgres"
	redisinfra "github.com/scarzbaddy-lab/unscarred-complete-site/internal/infra/redis"
	transport "github.com/scarzbaddy-lab/unscarred-complete-site/internal/transport/http"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/webhook"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment runtime server",
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

	var loader memory.DefinitionLoader = memory.NewStaticDefinitionLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewDefinitionLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var definitions app.DefinitionRepository
	if redisClient != nil {
		definitions = redisinfra.NewDefinitionRepository(redisClient, loader, quizTTL)
	} else {
		definitions = memory.NewDefinitionRepository(loader, quizTTL)
	}

	snapshotTTL := config.TTLDuration(cfg.Snapshot.TTL, 24*time.Hour)
	var snapshots app.SnapshotStore
	if redisClient != nil {
		snapshots = redisinfra.NewSnapshotStore(redisClient, snapshotTTL)
	} else {
		snapshots = memory.NewSnapshotStore()
	}

	var delivery app.ResultDelivery
	if cfg.Webhook.URL != "" {
		delivery = webhook.New(cfg.Webhook.URL, config.TTLDuration(cfg.Webhook.Timeout, 10*time.Second))
	}

	wsHandler := transport.NewWSHandler(definitions, snapshots, delivery)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting assessment runtime on :%s", finalPort)
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

// sampleQuizzes provides a minimal demo definition; swap the loader with
// the Postgres-backed one in production.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"core-wars": {
			ID:        "core-wars",
			Title:     "Core Wars Assessment",
			AllowBack: true,
			Questions: []domain.Question{
				{
					ID:   "q1",
					Type: domain.SingleChoice,
					Text: "When someone important pulls away, what hits first?",
					Options: []domain.ChoiceOption{
						{Value: "a", Text: "Fear of being left", War: "abandonment"},
						{Value: "b", Text: "Fear of being seen", War: "exposure"},
						{Value: "c", Text: "Feeling stuck", War: "entrapment"},
						{Value: "d", Text: "Feeling invisible", War: "erasure"},
					},
				},
				{
					ID:   "q2",
					Type: domain.Likert,
					Text: "I keep my guard up around new people.",
					ConditionalDisplay: &domain.LogicRule{
						Operator: domain.LogicAnd,
						Conditions: []domain.Condition{
							{QuestionID: "q1", Operator: domain.OpNotEquals, Value: "d"},
						},
					},
					Category:    "armored",
					ScalePoints: 5,
				},
				{
					ID:   "q3",
					Type: domain.SingleChoice,
					Text: "Under pressure, which response sounds most like you?",
					Options: []domain.ChoiceOption{
						{Value: "a", Text: "Everything floods in at once", Mask: "flooded"},
						{Value: "b", Text: "I lock everything down", Mask: "armored"},
						{Value: "c", Text: "I disappear into the background", Mask: "phantom"},
						{Value: "d", Text: "I analyze instead of feeling", Mask: "analyzer"},
					},
				},
			},
			Scoring: domain.ScoringConfig{
				Type: domain.Composite,
				Categories: []domain.CategoryConfig{
					{Name: "abandonment"}, {Name: "exposure"},
					{Name: "entrapment"}, {Name: "erasure"},
					{Name: "flooded"}, {Name: "armored"},
					{Name: "phantom"}, {Name: "analyzer"},
				},
				GroundZero: &domain.GroundZeroConfig{MinCategories: 3, MinScore: 3, MaxSpread: 2},
			},
		},
	}
}
