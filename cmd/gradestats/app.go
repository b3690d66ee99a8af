package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/external/coursepages"
	"github.com/noah-isme/gradestats-sync/internal/external/statsapi"
	"github.com/noah-isme/gradestats-sync/internal/repository"
	"github.com/noah-isme/gradestats-sync/internal/service"
	"github.com/noah-isme/gradestats-sync/pkg/cache"
	"github.com/noah-isme/gradestats-sync/pkg/config"
	"github.com/noah-isme/gradestats-sync/pkg/database"
	"github.com/noah-isme/gradestats-sync/pkg/logger"
)

// app holds the wired dependencies shared by the serve and sync commands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *sqlx.DB
	redis     *redis.Client
	cacheRepo *repository.CacheRepository
	metrics   *service.MetricsService
	cache     *service.CacheService
	snapshots *service.CachedSnapshotSource
	sync      *service.SyncService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.SnapshotTTL, logr, redisClient != nil)

	courseRepo := repository.NewCourseRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)

	stats := statsapi.NewClient(cfg.StatsAPI, logr, metrics)
	pages := coursepages.NewClient(cfg.CoursePages, logr, metrics)
	snapshots := service.NewCachedSnapshotSource(pages, cacheSvc, cfg.Cache.SnapshotTTL, cfg.Cache.MissTTL, logr)

	descriptive := service.NewDescriptiveResolver(snapshots, cfg.Sync, logr)
	courseSvc := service.NewCourseService(courseRepo, descriptive, cfg.StatsAPI.InstitutionID, logr)
	normalizer := service.NewGradeNormalizer(courseRepo, logr)
	resolver := service.NewSemesterConflictResolver(cfg.Sync.LegacyCutoffYear, logr)
	gradeSvc := service.NewGradeService(stats, normalizer, resolver, gradeRepo, courseRepo, logr)
	syncSvc := service.NewSyncService(stats, facultyRepo, courseSvc, gradeSvc, metrics, logr)

	return &app{
		cfg:       cfg,
		logger:    logr,
		db:        db,
		redis:     redisClient,
		cacheRepo: cacheRepo,
		metrics:   metrics,
		cache:     cacheSvc,
		snapshots: snapshots,
		sync:      syncSvc,
	}, nil
}

func (a *app) close() {
	if err := a.cacheRepo.Close(); err != nil {
		a.logger.Warn("failed to close redis", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
