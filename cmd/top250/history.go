package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/top250/internal/export"
	"github.com/John-Robertt/top250/internal/store"
)

// NewHistoryCmd 构造 history 子命令。
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看或重新导出历史爬取",
		Long: `每次 crawl 的结果都会写入 $XDG_DATA_HOME/top250/top250.db（可用 history.dir 修改）。

示例：
  top250 history                 # 列出最近的 run
  top250 history --run 3         # 以 JSON 输出 run 3 的全部记录
  top250 history --run latest --export   # 把最近一次 run 重新导出到输出目录`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int("limit", 20, "列出的 run 数量（0 表示全部）")
	cmd.Flags().String("run", "", "run ID 或 latest")
	cmd.Flags().Bool("export", false, "配合 --run：按配置的格式重新导出到输出目录")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runRef, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	reexport, err := cmd.Flags().GetBool("export")
	if err != nil {
		return err
	}
	if reexport && runRef == "" {
		return fmt.Errorf("--export 需要配合 --run 使用")
	}

	eff, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	st, err := store.Open(eff.HistoryDir)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if runRef == "" {
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintf(out, "暂无历史记录（%s）\n", st.Path())
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tRECORDS\tPAGES_FAILED\tDETAIL_FAILED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Records, r.PagesFailed, r.DetailFailed,
			)
		}
		return tw.Flush()
	}

	id, err := resolveRunID(ctx, st, runRef)
	if err != nil {
		return err
	}
	recs, err := st.LoadRecords(ctx, id)
	if err != nil {
		return err
	}

	if !reexport {
		return export.WriteJSON(out, recs)
	}
	files, err := export.WriteAll(ctx, eff.OutDir, recs, export.Options{Formats: eff.Formats, Title: eff.GalleryTitle})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run %d 已导出 %d 部电影：\n", id, len(recs))
	for _, f := range files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	return nil
}

// resolveRunID 把 "latest" 或数字 ID 解析为 run id。
func resolveRunID(ctx context.Context, st *store.Store, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if strings.EqualFold(ref, "latest") {
		return st.LatestRunID(ctx)
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("--run 只能是正整数或 latest，实际是 %q", ref)
	}
	return id, nil
}
