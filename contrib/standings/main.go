package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MagnetarProjects/magnetar"
	"github.com/MagnetarProjects/magnetar/db"
	"github.com/MagnetarProjects/magnetar/internal/config"
	"github.com/MagnetarProjects/magnetar/scoreapi"
	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

var (
	confPath = flag.String("config", "./config.toml", "Config path")
	flagPath = flag.String("flags", "./flags.json", "Flag configuration path")

	assignmentKey = flag.String("assignment", "", "Key of the assignment to print")
	withVirtual   = flag.Bool("virtual", false, "Include virtual participations")
	debugDump     = flag.Bool("debug", false, "Dump per-participation format data")
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
		slog.ErrorContext(ctx, "Error printing standings", slog.Any("err", err))
		os.Exit(1)
	}
	os.Exit(0)
}

func Magnetar(ctx context.Context) error {
	if *assignmentKey == "" {
		return errors.New("-assignment is required")
	}

	base, err := db.NewDB(ctx, config.C.Database.String())
	if err != nil {
		return err
	}
	api, err := scoreapi.GetBaseAPI(base)
	if err != nil {
		return err
	}
	defer api.Close()

	a, err := api.AssignmentByKey(ctx, *assignmentKey)
	if err != nil {
		return err
	}

	filter := magnetar.ParticipationFilter{AssignmentID: &a.ID, LiveOnly: !*withVirtual, Ranked: *withVirtual}
	participations, err := api.Participations(ctx, filter)
	if err != nil {
		return err
	}
	// Standings order, the same keys the rating engine ranks on.
	slices.SortStableFunc(participations, func(x, y *magnetar.Participation) int {
		if c := y.Score.Cmp(x.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Cumtime, y.Cumtime); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Tiebreaker, y.Tiebreaker); c != 0 {
			return c
		}
		return cmp.Compare(x.UserID, y.UserID)
	})

	users, err := api.Users(ctx, magnetar.UserFilter{IDs: userIDs(participations)})
	if err != nil {
		return err
	}
	names := make(map[int]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Name
	}

	labels, err := api.ProblemLabels(ctx, a)
	if err != nil {
		return err
	}
	problems, err := api.AssignmentProblems(ctx, a.ID)
	if err != nil {
		return err
	}
	labelList := make([]string, 0, len(problems))
	for _, pb := range problems {
		labelList = append(labelList, labels[pb.ID])
	}

	fmt.Printf("%s (%s), ended %s, %s participant(s), problems: %s\n",
		a.Name, a.Key,
		humanize.Time(a.EndTime),
		humanize.Comma(int64(a.UserCount)),
		strings.Join(labelList, " "),
	)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tuser\tscore\tcumtime\ttiebreaker")
	for i, p := range participations {
		name := names[p.UserID]
		if p.Virtual >= 1 {
			name = fmt.Sprintf("%s (v%d)", name, p.Virtual)
		}
		if p.Disqualified {
			name += " [DQ]"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%g\n",
			i+1, name,
			p.Score.StringFixed(int32(a.PointsPrecision)),
			time.Duration(p.Cumtime)*time.Second,
			p.Tiebreaker,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if *debugDump {
		for _, p := range participations {
			var data map[string]any
			if len(p.FormatData) > 0 {
				if err := json.Unmarshal(p.FormatData, &data); err != nil {
					return err
				}
			}
			fmt.Printf("%s: %s", names[p.UserID], spew.Sdump(data))
		}
	}
	return nil
}

func userIDs(participations []*magnetar.Participation) []int {
	ids := make([]int, 0, len(participations))
	for _, p := range participations {
		ids = append(ids, p.UserID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
