package config

import (
	"os"
	"strconv"
)

// Config wisefido-bp（血压分析 HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Thresholds struct {
		SystolicLimit  int // 高压上限 mmHg
		DiastolicLimit int // 低压上限 mmHg
	}
	SnapshotTTLSeconds  int // 分析快照缓存 TTL
	FetchTimeoutSeconds int // 远程 CSV 下载超时
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 默认阈值 140/90，可由设置接口在运行期调整
	cfg.Thresholds.SystolicLimit = parseInt(getEnv("BP_SYSTOLIC_LIMIT", "140"), 140)
	cfg.Thresholds.DiastolicLimit = parseInt(getEnv("BP_DIASTOLIC_LIMIT", "90"), 90)

	cfg.SnapshotTTLSeconds = parseInt(getEnv("SNAPSHOT_CACHE_TTL_SECONDS", "300"), 300)
	cfg.FetchTimeoutSeconds = parseInt(getEnv("FETCH_TIMEOUT_SECONDS", "30"), 30)

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
