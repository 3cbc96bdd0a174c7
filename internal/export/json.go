package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/John-Robertt/top250/internal/domain"
)

// WriteJSON 写出记录数组：两空格缩进，中文与 HTML 字符保持原样。
func WriteJSON(w io.Writer, recs []domain.MovieRecord) error {
	if recs == nil {
		recs = []domain.MovieRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// ReadJSON 解析 WriteJSON 的输出。
func ReadJSON(r io.Reader) ([]domain.MovieRecord, error) {
	var recs []domain.MovieRecord
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("解析电影数据失败：%w", err)
	}
	return recs, nil
}
