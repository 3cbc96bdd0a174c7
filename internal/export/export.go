package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/top250/internal/config"
	"github.com/John-Robertt/top250/internal/domain"
	"github.com/John-Robertt/top250/internal/infra/fsx"
)

const (
	FileCSV      = "douban_top250.csv"
	FileJSON     = "douban_top250.json"
	FileMarkdown = "douban_top250.md"
	FileReport   = "report.json"
)

// FileName 返回格式对应的输出文件名；未知格式返回空串。
func FileName(format string) string {
	switch format {
	case config.FormatCSV:
		return FileCSV
	case config.FormatJSON:
		return FileJSON
	case config.FormatMarkdown:
		return FileMarkdown
	default:
		return ""
	}
}

// Options 控制 WriteAll 的输出。
type Options struct {
	Formats []string // 为空时使用 config.DefaultFormats
	Title   string   // Markdown 标题
}

// WriteAll 把记录集合并发写成多种格式（每种格式一个文件，原子替换）。
//
// 只在爬取结束后调用，不涉及网络。返回实际写出的文件路径（与 Formats 顺序一致）。
// 任一格式失败即返回错误；已成功写出的文件保留。
func WriteAll(ctx context.Context, dir string, recs []domain.MovieRecord, opt Options) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = config.DefaultFormats
	}

	writers := make([]func(io.Writer) error, len(formats))
	paths := make([]string, len(formats))
	for i, f := range formats {
		name := FileName(f)
		if name == "" {
			return nil, fmt.Errorf("未知导出格式：%q", f)
		}
		paths[i] = filepath.Join(dir, name)
		switch f {
		case config.FormatCSV:
			writers[i] = func(w io.Writer) error { return WriteCSV(w, recs) }
		case config.FormatJSON:
			writers[i] = func(w io.Writer) error { return WriteJSON(w, recs) }
		case config.FormatMarkdown:
			writers[i] = func(w io.Writer) error { return WriteMarkdown(w, recs, opt.Title) }
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range formats {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fsx.WriteAtomic(dir, filepath.Base(paths[i]), writers[i]); err != nil {
				return fmt.Errorf("写入 %s 失败：%w", paths[i], err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// WriteReport 把运行报告写为 <dir>/report.json。
func WriteReport(dir string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(dir, FileReport, b)
}

// LoadJSON 读取 WriteJSON 产出的文件。
func LoadJSON(path string) ([]domain.MovieRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}
