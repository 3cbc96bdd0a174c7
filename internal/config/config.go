package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/top250/internal/infra/logx"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	AppName  = "top250"
	FileName = "top250.yaml"
)

const (
	DefaultBaseURL       = "https://movie.douban.com/top250"
	DefaultPages         = 10
	MaxPages             = 10
	DefaultPageSize      = 25
	DefaultDelay         = 2 * time.Second
	DefaultTimeout       = 20 * time.Second
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultMaxBodySize   = int64(5 << 20)
	DefaultLogLevel      = "warn"
	DefaultPostersDir    = "posters"
	DefaultGalleryOutput = "movie_gallery.html"
	DefaultGalleryTitle  = "豆瓣电影 Top 250"
)

const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// DefaultFormats 是未配置 formats 时的导出格式（顺序即写出顺序）。
var DefaultFormats = []string{FormatCSV, FormatJSON, FormatMarkdown}

// 测试可替换：XDG 目录在不同平台上位置不同。
var (
	xdgConfigDir = func() string { return filepath.Join(xdg.ConfigHome, AppName) }
	xdgDataDir   = func() string { return filepath.Join(xdg.DataHome, AppName) }
)

// CLIArgs 是 CLI 暴露的覆盖项。零值表示“未指定”。
type CLIArgs struct {
	ConfigPath string
	OutDir     string
	Verbose    bool
	NoHistory  bool
}

// FileConfig 对应 top250.yaml 的解析结构。
type FileConfig struct {
	OutDir      string        `yaml:"out_dir"`
	BaseURL     string        `yaml:"base_url"`
	Pages       *int          `yaml:"pages"`
	PageSize    int           `yaml:"page_size"`
	Delay       string        `yaml:"delay"`
	Timeout     string        `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	Proxy       *ProxyConfig  `yaml:"proxy"`
	MaxBodySize int64         `yaml:"max_body_size"`
	Formats     []string      `yaml:"formats"`
	History     HistoryConfig `yaml:"history"`
	Log         LogConfig     `yaml:"log"`
	Gallery     GalleryConfig `yaml:"gallery"`
}

type ProxyConfig struct {
	URL string `yaml:"url"`
}

type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type GalleryConfig struct {
	PostersDir string `yaml:"posters_dir"`
	Output     string `yaml:"output"`
	Title      string `yaml:"title"`
}

// EffectiveConfig 是合并并规范化后的最终配置；路径均为绝对路径。
type EffectiveConfig struct {
	// ConfigFile 是实际读取的配置文件；为空表示全部使用默认值。
	ConfigFile string

	OutDir string

	BaseURL     string
	Pages       int
	PageSize    int
	Delay       time.Duration
	Timeout     time.Duration
	UserAgent   string
	ProxyURL    string
	MaxBodySize int64

	Formats []string

	HistoryEnabled bool
	HistoryDir     string

	LogLevel string
	LogFile  string

	PostersDir    string
	GalleryOutput string
	GalleryTitle  string
}

// Offsets 返回各榜单页的 start 偏移：0, PageSize, 2*PageSize, ...
func (c EffectiveConfig) Offsets() []int {
	out := make([]int, 0, c.Pages)
	for i := 0; i < c.Pages; i++ {
		out = append(out, i*c.PageSize)
	}
	return out
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) --config 指定：必须存在
// 2) 否则 <cwd>/top250.yaml（可选）
// 3) 否则 $XDG_CONFIG_HOME/top250/top250.yaml（可选）
// 4) 都没有：全部默认值
//
// 覆盖优先级：CLI > 配置文件 > 默认值。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath, fc, err := discover(cwdAbs, cli.ConfigPath)
	if err != nil {
		return EffectiveConfig{}, err
	}
	eff, err := merge(cwdAbs, cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigFile = cfgPath
	return eff, nil
}

func discover(cwdAbs, explicit string) (string, FileConfig, error) {
	if strings.TrimSpace(explicit) != "" {
		p := absCleanFrom(cwdAbs, explicit)
		fc, exists, err := readFileConfig(p)
		if err != nil {
			return "", FileConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		if !exists {
			return "", FileConfig{}, &Error{Code: ErrCodeNotFound, Path: p, Err: os.ErrNotExist}
		}
		return p, fc, nil
	}

	for _, p := range []string{
		filepath.Join(cwdAbs, FileName),
		filepath.Join(xdgConfigDir(), FileName),
	} {
		fc, exists, err := readFileConfig(p)
		if err != nil {
			return "", FileConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		if exists {
			return p, fc, nil
		}
	}
	return "", FileConfig{}, nil
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	eff := EffectiveConfig{
		BaseURL:        DefaultBaseURL,
		Pages:          DefaultPages,
		PageSize:       DefaultPageSize,
		Delay:          DefaultDelay,
		Timeout:        DefaultTimeout,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		HistoryEnabled: true,
		LogLevel:       DefaultLogLevel,
		GalleryTitle:   DefaultGalleryTitle,
	}

	// out_dir：CLI > config > cwd
	outDir := "."
	if strings.TrimSpace(cli.OutDir) != "" {
		outDir = cli.OutDir
	} else if strings.TrimSpace(fc.OutDir) != "" {
		outDir = fc.OutDir
	}
	eff.OutDir = absCleanFrom(cwdAbs, outDir)

	if s := strings.TrimSpace(fc.BaseURL); s != "" {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return EffectiveConfig{}, fmt.Errorf("base_url 必须是 http/https 绝对地址：%q", s)
		}
		eff.BaseURL = s
	}

	// pages 超出 [1, 10] 截断。
	if fc.Pages != nil {
		eff.Pages = min(max(*fc.Pages, 1), MaxPages)
	}
	if fc.PageSize != 0 {
		if fc.PageSize < 1 || fc.PageSize > DefaultPageSize {
			return EffectiveConfig{}, fmt.Errorf("page_size 必须在 [1, %d] 内，实际是 %d", DefaultPageSize, fc.PageSize)
		}
		eff.PageSize = fc.PageSize
	}

	if s := strings.TrimSpace(fc.Delay); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			return EffectiveConfig{}, fmt.Errorf("delay 无效：%q", s)
		}
		eff.Delay = d
	}
	if s := strings.TrimSpace(fc.Timeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return EffectiveConfig{}, fmt.Errorf("timeout 无效：%q", s)
		}
		eff.Timeout = d
	}

	if s := strings.TrimSpace(fc.UserAgent); s != "" {
		eff.UserAgent = s
	}
	if fc.Proxy != nil {
		eff.ProxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%q", eff.ProxyURL)
		}
	}
	if fc.MaxBodySize < 0 {
		return EffectiveConfig{}, fmt.Errorf("max_body_size 不能为负数")
	}
	if fc.MaxBodySize > 0 {
		eff.MaxBodySize = fc.MaxBodySize
	}

	formats, err := normFormats(fc.Formats)
	if err != nil {
		return EffectiveConfig{}, err
	}
	eff.Formats = formats

	if fc.History.Enabled != nil {
		eff.HistoryEnabled = *fc.History.Enabled
	}
	if cli.NoHistory {
		eff.HistoryEnabled = false
	}
	eff.HistoryDir = xdgDataDir()
	if s := strings.TrimSpace(fc.History.Dir); s != "" {
		eff.HistoryDir = absCleanFrom(cwdAbs, s)
	}

	if s := strings.TrimSpace(fc.Log.Level); s != "" {
		if _, ok := logx.ParseLevel(s); !ok {
			return EffectiveConfig{}, fmt.Errorf("log.level 只能是 %s，实际是 %q", strings.Join(logx.Levels, "/"), s)
		}
		eff.LogLevel = strings.ToLower(s)
	}
	if cli.Verbose {
		eff.LogLevel = "debug"
	}
	if s := strings.TrimSpace(fc.Log.File); s != "" {
		eff.LogFile = absCleanFrom(cwdAbs, s)
	}

	// 画廊相关路径相对 out_dir。
	postersDir := DefaultPostersDir
	if s := strings.TrimSpace(fc.Gallery.PostersDir); s != "" {
		postersDir = s
	}
	eff.PostersDir = absCleanFrom(eff.OutDir, postersDir)
	output := DefaultGalleryOutput
	if s := strings.TrimSpace(fc.Gallery.Output); s != "" {
		output = s
	}
	eff.GalleryOutput = absCleanFrom(eff.OutDir, output)
	if s := strings.TrimSpace(fc.Gallery.Title); s != "" {
		eff.GalleryTitle = s
	}

	return eff, nil
}

func normFormats(in []string) ([]string, error) {
	if len(in) == 0 {
		return append([]string(nil), DefaultFormats...), nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "md" {
			f = FormatMarkdown
		}
		switch f {
		case FormatCSV, FormatJSON, FormatMarkdown:
		default:
			return nil, fmt.Errorf("formats 只能包含 csv/json/markdown，实际是 %q", f)
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。未知字段视为错误。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return FileConfig{}, true, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		// 只有注释的文件等同于空配置。
		if errors.Is(err, io.EOF) {
			return FileConfig{}, true, nil
		}
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
