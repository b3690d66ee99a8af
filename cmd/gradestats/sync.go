package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/models"
	"github.com/noah-isme/gradestats-sync/internal/service"
)

var (
	syncCourse   string
	syncRefresh  bool
	syncYear     int
	syncSemester string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync in the foreground and print its report",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncCourse, "course", "", "sync a single course code instead of the whole catalog")
	syncCmd.Flags().BoolVar(&syncRefresh, "refresh", false, "drop cached course pages before syncing")
	syncCmd.Flags().IntVar(&syncYear, "year", 0, "with --semester, refresh only this sitting of --course")
	syncCmd.Flags().StringVar(&syncSemester, "semester", "", "SPRING, SUMMER or AUTUMN; requires --course and --year")
	syncCmd.MarkFlagsRequiredTogether("year", "semester")
}

type pageForgetter interface {
	Forget(ctx context.Context, code string) error
}

// sittingTarget checks the sync flags. sitting is false unless a year or
// semester was given.
func sittingTarget(course string, year int, rawSemester string) (semester models.Semester, sitting bool, err error) {
	semester = models.Semester(strings.ToUpper(rawSemester))
	sitting = year != 0 || rawSemester != ""
	if sitting {
		if course == "" {
			return "", false, errors.New("--year and --semester require --course")
		}
		if year <= 0 {
			return "", false, errors.New("--year must be a positive year")
		}
		if !semester.Valid() {
			return "", false, errors.New("--semester must be SPRING, SUMMER or AUTUMN")
		}
	}
	if course != "" {
		if err := service.ValidateCourseCode(course); err != nil {
			return "", false, err
		}
	}
	return semester, sitting, nil
}

// dropCachedPages clears cached course pages. A failure only costs a fresh
// fetch later, so it is logged and the sync goes ahead.
func dropCachedPages(ctx context.Context, pages pageForgetter, logger *zap.Logger, code string) {
	if err := pages.Forget(ctx, code); err != nil {
		logger.Warn("failed to drop cached course pages", zap.String("course", code), zap.Error(err))
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	semester, sitting, err := sittingTarget(syncCourse, syncYear, syncSemester)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var (
		report *models.SyncReport
		runID  = uuid.NewString()
	)
	switch {
	case syncCourse == "":
		report, err = a.sync.RunAll(ctx, runID)
	case sitting:
		report, err = a.sync.RunSitting(ctx, runID, syncCourse, syncYear, semester)
	default:
		if syncRefresh {
			dropCachedPages(ctx, a.snapshots, a.logger, syncCourse)
		}
		report, err = a.sync.RunCourse(ctx, runID, syncCourse)
	}

	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	}
	return err
}
