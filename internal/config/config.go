// 包 config：读取 .env 与环境变量，集中给出守护进程的运行参数及默认值
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config：守护进程运行参数
type Config struct {
	ESPToken    string
	ESPBaseURL  string
	ESPTimeout  time.Duration
	ESPTestView string

	AreaTTL         time.Duration
	ScheduleTTL     time.Duration
	CacheMaxEntries int

	PollInterval time.Duration
	PollWorkers  int

	MerchantsFile  string
	MerchantsSheet string

	DBDriver   string
	SQLitePath string

	MetricsAddr string
	Location    *time.Location
}

// LoadDotenv：按顺序尝试加载 .env；文件不存在时忽略
func LoadDotenv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// 文档注释：从环境变量构建配置
// 约束：数值解析失败或非正数时静默回退默认值；TZ_NAME 无法加载时回退本地时区。
func FromEnv() Config {
	c := Config{
		ESPToken:        os.Getenv("ESP_TOKEN"),
		ESPBaseURL:      os.Getenv("ESP_BASE_URL"),
		ESPTimeout:      seconds("ESP_TIMEOUT_S", 10),
		ESPTestView:     os.Getenv("ESP_TEST_VIEW"),
		AreaTTL:         seconds("AREA_CACHE_TTL_S", 86400),
		ScheduleTTL:     seconds("SCHEDULE_CACHE_TTL_S", 1800),
		CacheMaxEntries: integer("CACHE_MAX_ENTRIES", 1000),
		PollInterval:    seconds("POLL_INTERVAL_S", 60),
		PollWorkers:     integer("POLL_WORKERS", 1),
		MerchantsFile:   os.Getenv("MERCHANTS_FILE"),
		MerchantsSheet:  os.Getenv("MERCHANTS_SHEET"),
		DBDriver:        os.Getenv("DB_DRIVER"),
		SQLitePath:      os.Getenv("SQLITE_PATH"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		Location:        time.Local,
	}
	if c.MerchantsSheet == "" {
		c.MerchantsSheet = "data"
	}
	if c.DBDriver == "" {
		c.DBDriver = "sqlite3"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "merchants.db"
	}
	if tz := os.Getenv("TZ_NAME"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			c.Location = loc
		}
	}
	return c
}

// Validate：启动前检查必填项
func (c Config) Validate() error {
	var errs []error
	if c.ESPToken == "" {
		errs = append(errs, errors.New("ESP token is required (ESP_TOKEN or --api-token)"))
	}
	if c.MerchantsFile == "" {
		errs = append(errs, errors.New("merchants file is required (MERCHANTS_FILE or --merchants)"))
	}
	switch c.ESPTestView {
	case "", "current", "future":
	default:
		errs = append(errs, errors.New("ESP_TEST_VIEW must be current or future"))
	}
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, errors.New("DB_DRIVER must be sqlite3 or postgres"))
	}
	return errors.Join(errs...)
}

func seconds(env string, def int) time.Duration {
	return time.Duration(integer(env, def)) * time.Second
}

func integer(env string, def int) int {
	if s := os.Getenv(env); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
