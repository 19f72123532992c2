package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"league-games-service/internal/config"
	"league-games-service/internal/domain"
	"league-games-service/internal/game"
	"league-games-service/internal/infra/memory"
	pgloader "league-games-service/internal/infra/postgres"
	redisinfra "league-games-service/internal/infra/redis"
	"league-games-service/internal/schedule"
	transport "league-games-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the league games server",
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

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
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

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	calendar := sampleCalendar(loc)
	if cfg.Schedule.EventsPath != "" {
		if calendar, err = schedule.LoadCalendar(cfg.Schedule.EventsPath, loc); err != nil {
			return err
		}
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
		defer pool.Close()
	}

	var loader memory.RosterLoader = memory.NewStaticRosterLoader(sampleRoster())
	if pool != nil {
		loader = pgloader.NewRosterLoader(pool, cfg.Roster.ID)
	}

	rosterTTL := config.TTLDuration(cfg.Roster.TTL, 10*time.Minute)
	var rosterRepo game.RosterRepository
	if redisClient != nil {
		rosterRepo = redisinfra.NewRosterRepository(redisClient, loader, rosterTTL)
	} else {
		rosterRepo = memory.NewRosterRepository(loader, rosterTTL)
	}

	var scores game.ScoreStore
	if redisClient != nil {
		scores = redisinfra.NewScoreStore(redisClient)
	} else {
		scores = memory.NewScoreStore()
	}

	engine := game.NewEngine(rosterRepo, scores, logger, game.Config{
		QuickRounds:  cfg.Game.QuickRounds,
		CorrectDelay: config.TTLDuration(cfg.Game.CorrectDelay, time.Second),
		WrongDelay:   config.TTLDuration(cfg.Game.WrongDelay, 3*time.Second),
	})

	apiHandler := transport.NewAPIHandler(calendar, engine, loc, logger)
	wsHandler := transport.NewWSHandler(engine, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/events", apiHandler.Events)
	mux.HandleFunc("/api/leaderboard", apiHandler.Leaderboard)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting league games service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleRoster provides demo participants; swap in the Postgres loader in
// production.
func sampleRoster() domain.Roster {
	return domain.Roster{
		{Name: "Arjun Nair", HouseID: 1, Gender: domain.GenderMale, ImageRef: "img/arjun.jpg"},
		{Name: "Bala Krishnan", HouseID: 2, Gender: domain.GenderMale, ImageRef: "img/bala.jpg"},
		{Name: "Charan Reddy", HouseID: 3, Gender: domain.GenderMale, ImageRef: "img/charan.jpg"},
		{Name: "Dinesh Kumar", HouseID: 1, Gender: domain.GenderMale, ImageRef: "img/dinesh.jpg"},
		{Name: "Farhan Ali", HouseID: 2, Gender: domain.GenderMale, ImageRef: "img/farhan.jpg"},
		{Name: "Gopal Menon", HouseID: 3, Gender: domain.GenderMale, ImageRef: "img/gopal.jpg"},
		{Name: "Esha Pillai", HouseID: 2, Gender: domain.GenderFemale, ImageRef: "img/esha.jpg"},
		{Name: "Farah Sheikh", HouseID: 3, Gender: domain.GenderFemale, ImageRef: "img/farah.jpg"},
		{Name: "Gita Iyer", HouseID: 1, Gender: domain.GenderFemale, ImageRef: "img/gita.jpg"},
		{Name: "Hema Rao", HouseID: 2, Gender: domain.GenderFemale, ImageRef: "img/hema.jpg"},
		{Name: "Indira Das", HouseID: 3, Gender: domain.GenderFemale, ImageRef: "img/indira.jpg"},
		{Name: "Jaya Patel", HouseID: 1, Gender: domain.GenderFemale, ImageRef: "img/jaya.jpg"},
	}
}

// sampleCalendar is used when no events file is configured.
func sampleCalendar(loc *time.Location) []domain.Activity {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	return []domain.Activity{
		{Name: "Table Tennis", Ranges: []domain.DateRange{
			{Start: day(2025, 4, 22), End: day(2025, 4, 25)},
		}},
		{Name: "Volleyball", Ranges: []domain.DateRange{
			{Start: day(2025, 3, 3), End: day(2025, 3, 3)},
			{Start: day(2025, 3, 4), End: day(2025, 3, 4)},
			{Start: day(2025, 3, 5), End: day(2025, 3, 5)},
		}},
		{Name: "Sports Day", Ranges: []domain.DateRange{
			{Start: day(2025, 5, 10), End: day(2025, 5, 10)},
		}},
	}
}
