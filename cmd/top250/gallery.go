package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/top250/internal/export"
	"github.com/John-Robertt/top250/internal/gallery"
	"github.com/John-Robertt/top250/internal/store"
)

// NewGalleryCmd 构造 gallery 子命令。
func NewGalleryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "由导出数据生成静态海报画廊",
		Long: `读取 crawl 导出的 douban_top250.json（或历史库中的某次 run），生成 movie_gallery.html。

本地海报目录中存在 <电影名>.jpg 时优先使用本地文件，否则使用海报链接。

示例：
  top250 gallery
  top250 gallery --input data/douban_top250.json
  top250 gallery --run latest`,
		Args: cobra.NoArgs,
		RunE: runGalleryCmd,
	}

	cmd.Flags().String("input", "", "JSON 数据文件（默认 <out>/douban_top250.json）")
	cmd.Flags().String("run", "", "改为使用历史库中的 run（ID 或 latest）")

	return cmd
}

func runGalleryCmd(cmd *cobra.Command, _ []string) error {
	input, err := cmd.Flags().GetString("input")
	if err != nil {
		return err
	}
	runRef, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}

	eff, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	opt := galleryOptions(eff)

	var n int
	if runRef != "" {
		st, err := store.Open(eff.HistoryDir)
		if err != nil {
			return err
		}
		defer st.Close()

		id, err := resolveRunID(cmd.Context(), st, runRef)
		if err != nil {
			return err
		}
		recs, err := st.LoadRecords(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := gallery.Build(recs, opt); err != nil {
			return err
		}
		n = len(recs)
	} else {
		if input == "" {
			input = filepath.Join(eff.OutDir, export.FileJSON)
		}
		n, err = gallery.BuildFromJSON(input, opt)
		if errors.Is(err, gallery.ErrNoData) {
			return fmt.Errorf("%w（请先运行 top250 crawl）", err)
		}
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "画廊已生成：%s（%d 部电影）\n", opt.Output, n)
	return nil
}
