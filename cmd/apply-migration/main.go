// apply-migration 把 migrations/ 下的 SQL 文件按文件名顺序执行
// 用法: apply-migration [dir]（默认 ./migrations）
package main

import (
	"os"
	"path/filepath"
	"sort"

	"sitepass/internal/config"
	"sitepass/pkg/database"
	"sitepass/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "apply-migration")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	dir := "./migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil || len(files) == 0 {
		log.Error("No migration files found", zap.String("dir", dir))
		os.Exit(1)
	}
	sort.Strings(files)

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Error("Cannot connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			log.Error("Cannot read migration", zap.String("file", file), zap.Error(err))
			os.Exit(1)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			log.Error("Migration failed", zap.String("file", file), zap.Error(err))
			os.Exit(1)
		}
		log.Info("Applied migration", zap.String("file", filepath.Base(file)))
	}
	log.Info("All migrations applied", zap.Int("count", len(files)))
}
