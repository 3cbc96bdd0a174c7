package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/top250/internal/config"
)

// NewRootCmd 构造根命令。
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top250",
		Short: "豆瓣电影 Top 250 爬取与画廊生成",
		Long: `top250 依次抓取豆瓣电影 Top 250 榜单页与详情页，
把结果导出为 CSV / JSON / Markdown，并可生成一个可筛选的静态海报画廊。

配置文件查找顺序：--config > ./top250.yaml > $XDG_CONFIG_HOME/top250/top250.yaml。`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "配置文件路径（指定时必须存在）")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "输出调试日志")
	cmd.PersistentFlags().String("out", "", "输出目录（覆盖配置中的 out_dir）")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewGalleryCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute 运行根命令；任何错误都以退出码 1 结束。
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		os.Exit(1)
	}
}

// loadConfig 把全局 flag 与配置文件合并为最终配置。
func loadConfig(cmd *cobra.Command, noHistory bool) (config.EffectiveConfig, error) {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.EffectiveConfig{}, err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return config.EffectiveConfig{}, err
	}
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return config.EffectiveConfig{}, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	return config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath: cfgPath,
		OutDir:     out,
		Verbose:    verbose,
		NoHistory:  noHistory,
	})
}
