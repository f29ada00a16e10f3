package migrate

import (
	"database/sql"

	"loadshed-monitor/internal/logger"
)

// 背景：首次运行自动创建停业商户表与审计日志表；SQLite（默认）与 PostgreSQL 仅在自增主键与时间类型上不同
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB, driver string) error {
	idCol := "ID INTEGER PRIMARY KEY AUTOINCREMENT"
	tsType := "TIMESTAMP"
	if driver == "postgres" {
		idCol = "ID BIGSERIAL PRIMARY KEY"
		tsType = "TIMESTAMPTZ"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ClosedMerchant (
            MerchantUUID TEXT PRIMARY KEY,
            Status TEXT NOT NULL,
            AreaID TEXT NOT NULL,
            LastUpdated ` + tsType + ` NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS Logging (
            ` + idCol + `,
            Timestamp ` + tsType + ` NOT NULL,
            Action TEXT NOT NULL,
            MerchantUUID TEXT NOT NULL,
            AreaID TEXT NOT NULL,
            AreaName TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_logging_merchant ON Logging(MerchantUUID)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i, "driver", driver)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
