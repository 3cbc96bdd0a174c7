package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/top250/internal/config"
)

//go:embed templates/top250.yaml
var configTemplate embed.FS

// NewInitCmd 构造 init 子命令：写出带注释的配置模板。
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "生成配置文件模板",
		Long: `在当前目录生成 top250.yaml，包含全部可配置项与默认值说明。

示例：
  top250 init
  top250 init -o ~/.config/top250/top250.yaml
  top250 init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.FileName, "配置文件输出路径")
	cmd.Flags().BoolP("force", "f", false, "覆盖已存在的文件")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("配置文件已存在：%s（使用 -f 覆盖）", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/top250.yaml")
	if err != nil {
		return fmt.Errorf("读取配置模板失败：%w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录失败：%w", err)
		}
	}
	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return fmt.Errorf("写入配置文件失败：%w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "已生成配置文件：%s\n", outputPath)
	return nil
}
