package gallery

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/top250/internal/domain"
	"github.com/John-Robertt/top250/internal/infra/fsx"
)

var posterNameReplacer = strings.NewReplacer("/", "_", ":", "_", " ", "_")

// PosterFileName 返回电影海报在本地海报目录中的文件名：
// 标题里的 '/'、':'、空格替换为 '_'，后缀固定 .jpg。
func PosterFileName(title string) string {
	return posterNameReplacer.Replace(title) + ".jpg"
}

// Posters 决定卡片使用本地海报还是网络海报。只检查文件是否存在，不下载。
type Posters struct {
	Dir string // 本地海报目录（绝对路径）；为空表示不使用本地海报
	Rel string // 页面引用该目录时使用的相对路径（'/' 分隔）
}

// Source 返回记录的海报地址：本地文件存在时用相对路径，否则用记录里的海报链接。
func (p Posters) Source(r domain.MovieRecord) string {
	if p.Dir == "" {
		return r.PosterURL
	}
	name := PosterFileName(r.Title)
	if !fsx.Exists(filepath.Join(p.Dir, name)) {
		return r.PosterURL
	}
	if p.Rel == "" || p.Rel == "." {
		return name
	}
	return path.Join(p.Rel, name)
}

// postersFor 计算从页面所在目录到海报目录的相对路径。
func postersFor(outputPath, postersDir string) Posters {
	if postersDir == "" {
		return Posters{}
	}
	rel, err := filepath.Rel(filepath.Dir(outputPath), postersDir)
	if err != nil {
		return Posters{}
	}
	return Posters{Dir: postersDir, Rel: filepath.ToSlash(rel)}
}
