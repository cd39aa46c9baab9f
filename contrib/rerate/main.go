package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MagnetarProjects/magnetar"
	"github.com/MagnetarProjects/magnetar/db"
	"github.com/MagnetarProjects/magnetar/integrations/prometheus"
	"github.com/MagnetarProjects/magnetar/integrations/redislock"
	"github.com/MagnetarProjects/magnetar/internal/config"
	"github.com/MagnetarProjects/magnetar/scoreapi"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

var (
	confPath = flag.String("config", "./config.toml", "Config path")
	flagPath = flag.String("flags", "./flags.json", "Flag configuration path")

	assignmentKey = flag.String("assignment", "", "Key of the assignment to rate")
	allPending    = flag.Bool("all", false, "Rate pending assignments instead of a named one")
	recompute     = flag.Bool("recompute", false, "Recompute participation results before rating (with -assignment)")
	withLock      = flag.Bool("lock", false, "Hold the Redis rating lock for the duration of the run")
	lockTTL       = flag.Duration("lockTTL", 10*time.Minute, "Redis lock expiry")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	_ = godotenv.Load()
	if err := config.Load(*confPath); err != nil {
		slog.ErrorContext(ctx, "Error loading config", slog.Any("err", err))
		os.Exit(1)
	}
	config.SetFlagsPath(*flagPath)
	if err := config.LoadFlags(ctx); err != nil {
		slog.ErrorContext(ctx, "Error loading flags", slog.Any("err", err))
		os.Exit(1)
	}
	if err := magnetar.InitLogging(config.C.Common.Debug, config.C.Common.LogDir); err != nil {
		slog.ErrorContext(ctx, "Error initializing logging", slog.Any("err", err))
		os.Exit(1)
	}

	if err := Magnetar(ctx); err != nil {
		slog.ErrorContext(ctx, "Error rating", slog.Any("err", err))
		os.Exit(1)
	}
	os.Exit(0)
}

func Magnetar(ctx context.Context) error {
	slog.InfoContext(ctx, "Starting Magnetar rerate", slog.String("version", magnetar.Version))

	if *assignmentKey == "" && !*allPending {
		return errors.New("either -assignment or -all must be given")
	}

	base, err := db.NewDB(ctx, config.C.Database.String())
	if err != nil {
		return err
	}
	if err := base.RunMigrations(ctx); err != nil {
		return err
	}
	api, err := scoreapi.GetBaseAPI(base)
	if err != nil {
		return err
	}
	defer api.Close()

	prometheus.InitMetrics()

	if *withLock {
		locker, err := redislock.New(ctx)
		if err != nil {
			return err
		}
		defer locker.Close()
		lock, err := locker.Acquire(ctx, redislock.RatingKey, *lockTTL)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				slog.WarnContext(ctx, "Couldn't release rating lock", slog.Any("err", err))
			}
		}()
	}

	if *assignmentKey != "" {
		a, err := api.AssignmentByKey(ctx, *assignmentKey)
		if err != nil {
			return err
		}
		if *recompute {
			if err := api.RecomputeAssignment(ctx, a.ID); err != nil {
				return err
			}
		}
		if err := api.Rate(ctx, a.ID); err != nil {
			return err
		}
	} else {
		// Rating the earliest pending assignment replays everything after
		// it, so a single pass settles the whole backlog.
		a, err := api.RatePending(ctx)
		if err != nil {
			return err
		}
		if a == nil {
			slog.InfoContext(ctx, "No pending assignments")
		} else {
			slog.InfoContext(ctx, "Rated pending assignments", slog.String("first", a.Key))
		}
	}

	runs, err := api.RatingRuns(ctx, 5)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s: %s, %d assignment(s), %d rating(s)\n",
			run.RunID, humanize.Time(run.StartedAt), run.RatedAssignments, run.RatingsWritten)
	}
	return nil
}
