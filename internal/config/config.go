package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "sitepass/pkg/config"
)

// Config sitepass（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	Database commoncfg.DatabaseConfig
	Redis    commoncfg.RedisConfig
	Log      struct {
		Level  string
		Format string
	}
	JWT struct {
		Secret string
		Expiry time.Duration
	}
	VMS struct {
		// PENDING 请求的有效窗口（过期后读取为 EXPIRED，见 workflow.EffectiveVisitorStatus）
		CheckInWindow time.Duration
		// 公共状态轮询接口建议的客户端轮询间隔（秒，仅回传给前端）
		PollIntervalSec int
	}
	QR struct {
		BaseURL string // 第三方二维码渲染服务
		Size    int
	}
	Export struct {
		// 导出结果集上限，防止全表物化耗尽内存
		MaxRows int
	}
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "sitepass")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.JWT.Secret = getEnv("JWT_SECRET", "change-me-in-production")
	cfg.JWT.Expiry = time.Duration(parseInt(getEnv("JWT_EXPIRY_HOURS", "24"), 24)) * time.Hour

	cfg.VMS.CheckInWindow = time.Duration(parseInt(getEnv("VMS_CHECKIN_WINDOW_HOURS", "24"), 24)) * time.Hour
	cfg.VMS.PollIntervalSec = parseInt(getEnv("VMS_POLL_INTERVAL_SEC", "5"), 5)

	cfg.QR.BaseURL = getEnv("QR_BASE_URL", "https://api.qrserver.com/v1/create-qr-code")
	cfg.QR.Size = parseInt(getEnv("QR_SIZE", "256"), 256)

	cfg.Export.MaxRows = parseInt(getEnv("EXPORT_MAX_ROWS", "10000"), 10000)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
