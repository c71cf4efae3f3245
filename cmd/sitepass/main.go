package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitepass/internal/config"
	httpapi "sitepass/internal/http"
	"sitepass/internal/repository"
	"sitepass/internal/service"
	"sitepass/internal/store"
	"sitepass/pkg/database"
	"sitepass/pkg/logger"
	"sitepass/pkg/redisx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env 可选，生产环境直接用环境变量
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "sitepass")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres 不可用时回落内存 repo 支持联测
	var db *sql.DB
	if d, derr := database.NewPostgresDB(&cfg.Database); derr == nil {
		db = d
		defer db.Close()
		log.Info("Connected to Postgres", zap.String("database", cfg.Database.Database))
	} else {
		log.Warn("Postgres unavailable, using in-memory repositories", zap.Error(derr))
	}

	var (
		permitsRepo      repository.PermitsRepository
		visitorsRepo     repository.VisitorsRepository
		preApprovalsRepo repository.PreApprovalsRepository
		metersRepo       repository.MetersRepository
		companiesRepo    repository.CompaniesRepository
		rolesRepo        repository.RolesRepository
		usersRepo        repository.UsersRepository
	)
	if db != nil {
		permitsRepo = repository.NewPostgresPermitsRepository(db)
		visitorsRepo = repository.NewPostgresVisitorsRepository(db)
		preApprovalsRepo = repository.NewPostgresPreApprovalsRepository(db)
		metersRepo = repository.NewPostgresMetersRepository(db)
		companiesRepo = repository.NewPostgresCompaniesRepository(db)
		rolesRepo = repository.NewPostgresRolesRepository(db)
		usersRepo = repository.NewPostgresUsersRepository(db)
	} else {
		permitsRepo = repository.NewMemoryPermitsRepo()
		visitorsRepo = repository.NewMemoryVisitorsRepo()
		preApprovalsRepo = repository.NewMemoryPreApprovalsRepo()
		metersRepo = repository.NewMemoryMetersRepo()
		companiesRepo = repository.NewMemoryCompaniesRepo()
		rolesRepo = repository.NewMemoryRolesRepo()
		usersRepo = repository.NewMemoryUsersRepo()
	}

	// Redis 不可用时回落内存 KV
	var kv store.KV
	redisClient := redisx.NewRedisClient(&cfg.Redis)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if rerr := redisx.Ping(pingCtx, redisClient); rerr == nil {
		kv = store.NewRedisKV(redisClient)
		defer redisClient.Close()
		log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		kv = store.NewMemoryKV()
		log.Warn("Redis unavailable, using in-memory cache", zap.Error(rerr))
	}
	pingCancel()

	// 启动时执行声明式种子（幂等）
	if os.Getenv("SEED_ON_START") != "false" {
		if _, serr := service.NewSeedService(rolesRepo, usersRepo, log).Seed(context.Background()); serr != nil {
			log.Warn("Seed on start failed", zap.Error(serr))
		}
	}

	directory := service.NewCompanyDirectory(companiesRepo, kv, 5*time.Minute, log)
	authSvc := service.NewAuthService(usersRepo, cfg.JWT.Secret, cfg.JWT.Expiry, log)
	permitSvc := service.NewPermitService(permitsRepo, rolesRepo, log)
	visitorSvc := service.NewVisitorService(visitorsRepo, preApprovalsRepo, rolesRepo, directory,
		cfg.VMS.CheckInWindow, cfg.VMS.PollIntervalSec, log)
	preApprovalSvc := service.NewPreApprovalService(preApprovalsRepo, rolesRepo, directory, log)
	meterSvc := service.NewMeterService(metersRepo, rolesRepo, log)
	exportSvc := service.NewExportService(metersRepo, rolesRepo, cfg.Export.MaxRows, log)
	dashboardSvc := service.NewDashboardService(permitsRepo, visitorsRepo, metersRepo, rolesRepo, log)
	qrClient := service.NewQRClient(cfg.QR.BaseURL, cfg.QR.Size, log)
	gatepassSvc := service.NewGatepassService(visitorSvc, qrClient, log)

	router := httpapi.NewRouter(log)
	auth := httpapi.NewAuthMiddleware(authSvc, log)
	router.RegisterHealthRoute()
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(authSvc, log))
	visitorHandler := httpapi.NewVisitorHandler(visitorSvc, gatepassSvc, log)
	router.RegisterCheckinRoutes(visitorHandler)
	router.RegisterVisitorRoutes(visitorHandler, auth)
	router.RegisterPermitRoutes(httpapi.NewPermitHandler(permitSvc, log), auth)
	router.RegisterPreApprovalRoutes(httpapi.NewPreApprovalHandler(preApprovalSvc, log), auth)
	router.RegisterMeterRoutes(httpapi.NewMeterHandler(meterSvc, exportSvc, log), auth)
	router.RegisterDashboardRoutes(httpapi.NewDashboardHandler(dashboardSvc, log), auth)
	router.RegisterAdminRoutes(httpapi.NewAdminHandler(rolesRepo, directory, log), auth)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case serr := <-errCh:
		if serr != nil {
			log.Error("HTTP server stopped", zap.Error(serr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Stop(shutdownCtx); serr != nil {
		log.Error("Graceful shutdown failed", zap.Error(serr))
	}
}
