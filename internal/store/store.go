// 包 store：商户开闭状态持久化与审计日志，支持 SQLite 与 PostgreSQL
package store

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	"loadshed-monitor/internal/loadshed"
	"loadshed-monitor/internal/logger"
)

const (
	ActionClosed = "Closed"
	ActionOpened = "Opened"
)

var pgPlaceholder = regexp.MustCompile(`\$\d+`)

// Store：数据库访问入口，持有连接池
type Store struct {
	db     *sql.DB
	driver string
}

// AttachDB：绑定已打开的连接；driver 为 "postgres" 或 "sqlite3"
func AttachDB(db *sql.DB, driver string) *Store { return &Store{db: db, driver: driver} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// q：语句统一以 $n 书写，SQLite 下改写为 ?（参数均按出现顺序绑定）
func (s *Store) q(query string) string {
	if s.driver == "postgres" {
		return query
	}
	return pgPlaceholder.ReplaceAllString(query, "?")
}

// 文档注释：标记商户停业
// 背景：停电期间商户不可接单；已停业的商户再次关闭仅刷新时间戳。同一事务内追加审计日志。
func (s *Store) CloseMerchant(ctx context.Context, merchantUUID string, area loadshed.AreaInfo, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO ClosedMerchant (MerchantUUID, Status, AreaID, LastUpdated)
        VALUES ($1, 'Closed', $2, $3)
        ON CONFLICT (MerchantUUID) DO UPDATE SET Status='Closed', LastUpdated=excluded.LastUpdated`),
		merchantUUID, area.ID, at); err != nil {
		return err
	}
	if err := s.audit(ctx, tx, ActionClosed, merchantUUID, area, at); err != nil {
		return err
	}
	logger.L().Debug("db_merchant_closed", "merchant_uuid", merchantUUID, "area_id", area.ID)
	return tx.Commit()
}

// 文档注释：标记商户恢复营业
// 背景：删除停业记录；商户本就营业时删除为空操作，审计日志照常追加。
func (s *Store) OpenMerchant(ctx context.Context, merchantUUID string, area loadshed.AreaInfo, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM ClosedMerchant WHERE MerchantUUID=$1`), merchantUUID); err != nil {
		return err
	}
	if err := s.audit(ctx, tx, ActionOpened, merchantUUID, area, at); err != nil {
		return err
	}
	logger.L().Debug("db_merchant_opened", "merchant_uuid", merchantUUID, "area_id", area.ID)
	return tx.Commit()
}

func (s *Store) audit(ctx context.Context, tx *sql.Tx, action, merchantUUID string, area loadshed.AreaInfo, at time.Time) error {
	_, err := tx.ExecContext(ctx, s.q(`INSERT INTO Logging (Timestamp, Action, MerchantUUID, AreaID, AreaName)
        VALUES ($1, $2, $3, $4, $5)`),
		at, action, merchantUUID, area.ID, area.Name)
	return err
}

// ClosedMerchant：停业表记录
type ClosedMerchant struct {
	MerchantUUID string
	Status       string
	AreaID       string
	LastUpdated  time.Time
}

// ClosedMerchants：按最近更新时间倒序列出停业商户
func (s *Store) ClosedMerchants(ctx context.Context) ([]ClosedMerchant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT MerchantUUID, Status, AreaID, LastUpdated FROM ClosedMerchant ORDER BY LastUpdated DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClosedMerchant
	for rows.Next() {
		var c ClosedMerchant
		if err := rows.Scan(&c.MerchantUUID, &c.Status, &c.AreaID, &c.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AuditEntry：审计日志记录
type AuditEntry struct {
	ID           int64
	Timestamp    time.Time
	Action       string
	MerchantUUID string
	AreaID       string
	AreaName     string
}

// RecentAudit：读取最近 limit 条审计日志（limit<=0 时取 50）
func (s *Store) RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT ID, Timestamp, Action, MerchantUUID, AreaID, AreaName
        FROM Logging ORDER BY ID DESC LIMIT $1`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var a AuditEntry
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.Action, &a.MerchantUUID, &a.AreaID, &a.AreaName); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
