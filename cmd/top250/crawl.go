package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/top250/internal/app/crawl"
	"github.com/John-Robertt/top250/internal/config"
	"github.com/John-Robertt/top250/internal/export"
	"github.com/John-Robertt/top250/internal/gallery"
	"github.com/John-Robertt/top250/internal/infra/fsx"
	"github.com/John-Robertt/top250/internal/infra/logx"
	"github.com/John-Robertt/top250/internal/store"
)

// NewCrawlCmd 构造 crawl 子命令。
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "爬取 Top 250 并导出",
		Long: `按页抓取榜单与每部电影的详情页，导出 CSV / JSON / Markdown 与 report.json。

单页或单条详情失败不会中断爬取；失败记录在 report.json 中。
Ctrl+C 会停止爬取，已获取的记录仍会导出。

stdout 不是终端时，stdout 只输出一个 RunReport JSON。`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().Bool("no-history", false, "不写入历史库")
	cmd.Flags().Bool("gallery", false, "导出后同时生成画廊")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return err
	}
	withGallery, err := cmd.Flags().GetBool("gallery")
	if err != nil {
		return err
	}

	eff, err := loadConfig(cmd, noHistory)
	if err != nil {
		return err
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	log, closeLog, err := logx.New(eff.LogLevel, eff.LogFile, stderr)
	if err != nil {
		return fmt.Errorf("初始化日志失败：%w", err)
	}
	defer closeLog()
	log.Debug("生效配置",
		zap.String("config", eff.ConfigFile),
		zap.String("out_dir", eff.OutDir),
		zap.String("base_url", eff.BaseURL),
		zap.Int("pages", eff.Pages),
		zap.Duration("delay", eff.Delay),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := newProgressUI(pickProgressWriter(stdout, stderr))
	res, err := crawl.Execute(ctx, eff, obs, log)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		log.Warn("爬取被中断，导出已获取的记录", zap.Int("records", len(res.Records)))
	}

	// 中断后仍要落盘：导出不跟随信号取消。
	files, exportErr := export.WriteAll(context.WithoutCancel(ctx), eff.OutDir, res.Records, export.Options{
		Formats: eff.Formats,
		Title:   eff.GalleryTitle,
	})
	if exportErr == nil {
		if err := export.WriteReport(eff.OutDir, res.Report); err != nil {
			exportErr = fmt.Errorf("写入 report.json 失败：%w", err)
		}
	}

	if eff.HistoryEnabled {
		saveHistory(context.WithoutCancel(ctx), eff, res, log)
	}

	if withGallery && exportErr == nil {
		if err := gallery.Build(res.Records, galleryOptions(eff)); err != nil {
			exportErr = fmt.Errorf("生成画廊失败：%w", err)
		} else {
			files = append(files, eff.GalleryOutput)
		}
	}

	emitReport(stdout, stderr, res.Report, files)
	if fsx.IsPathTypeConflict(exportErr) {
		return fmt.Errorf("%w（请移走同名目录后重试）", exportErr)
	}
	return exportErr
}

// saveHistory 把本次结果写入历史库；失败只记日志，不影响导出结果。
func saveHistory(ctx context.Context, eff config.EffectiveConfig, res crawl.Result, log *zap.Logger) {
	st, err := store.Open(eff.HistoryDir)
	if err != nil {
		log.Warn("打开历史库失败", zap.String("dir", eff.HistoryDir), zap.Error(err))
		return
	}
	defer st.Close()

	id, err := st.SaveRun(ctx, res.Report, res.Records)
	if err != nil {
		log.Warn("写入历史库失败", zap.String("db", st.Path()), zap.Error(err))
		return
	}
	log.Info("已写入历史库", zap.String("db", st.Path()), zap.Int64("run_id", id))
}

func galleryOptions(eff config.EffectiveConfig) gallery.Options {
	return gallery.Options{
		Output:     eff.GalleryOutput,
		PostersDir: eff.PostersDir,
		Title:      eff.GalleryTitle,
	}
}
