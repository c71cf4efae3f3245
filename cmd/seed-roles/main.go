// seed-roles 独立的种子执行器
// 部署脚本里先于 sitepass 运行；退出码 0=成功，1=存在失败项
package main

import (
	"context"
	"os"

	"sitepass/internal/config"
	"sitepass/internal/repository"
	"sitepass/internal/service"
	"sitepass/pkg/database"
	"sitepass/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "seed-roles")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Error("Cannot connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	seed := service.NewSeedService(
		repository.NewPostgresRolesRepository(db),
		repository.NewPostgresUsersRepository(db),
		log,
	)
	report, err := seed.Seed(context.Background())
	if err != nil {
		log.Error("Seed failed", zap.Error(err))
		os.Exit(1)
	}
	if report.Errors > 0 {
		log.Error("Seed finished with errors", zap.Int("errors", report.Errors))
		os.Exit(1)
	}
	log.Info("Seed finished",
		zap.Int("permissions", report.PermissionsUpserted),
		zap.Int("roles", report.RolesUpserted),
		zap.Int("users", report.UsersUpserted))
}
