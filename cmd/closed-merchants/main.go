package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"loadshed-monitor/internal/config"
	"loadshed-monitor/internal/logger"
	"loadshed-monitor/internal/store"
	"loadshed-monitor/internal/utils"
)

// 文档注释：停业商户查询 CLI
// 背景：运维排查时直接查看当前停业商户与最近的开闭审计记录，无需连库手写 SQL。
// 约束：只读；数据库选择与守护进程一致（DB_DRIVER / SQLITE_PATH / PG_*）。
func main() {
	var audit int
	cmd := &cobra.Command{
		Use:          "closed-merchants",
		Short:        "List merchants currently closed for load shedding",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config.LoadDotenv(".env")
			l := logger.Setup()
			cfg := config.FromEnv()
			db, err := utils.OpenDatabase(cfg.DBDriver, cfg.SQLitePath)
			if err != nil {
				l.Error("db_open_error", "err", err)
				return err
			}
			st := store.AttachDB(db, cfg.DBDriver)
			defer st.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()
			if audit > 0 {
				entries, err := st.RecentAudit(ctx, audit)
				if err != nil {
					l.Error("audit_query_error", "err", err)
					return err
				}
				fmt.Fprintln(w, "ID\tTIMESTAMP\tACTION\tMERCHANT\tAREA\tAREA NAME")
				for _, e := range entries {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Timestamp.Format(time.RFC3339), e.Action, e.MerchantUUID, e.AreaID, e.AreaName)
				}
				return nil
			}
			rows, err := st.ClosedMerchants(ctx)
			if err != nil {
				l.Error("closed_query_error", "err", err)
				return err
			}
			fmt.Fprintln(w, "MERCHANT\tSTATUS\tAREA\tLAST UPDATED")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.MerchantUUID, r.Status, r.AreaID, r.LastUpdated.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&audit, "audit", 0, "show the N most recent open/close audit entries instead")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
