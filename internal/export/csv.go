package export

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/John-Robertt/top250/internal/domain"
)

// WriteCSV 写出带 UTF-8 BOM 的 CSV：表头 + 每条记录一行。
// 空集合也会写出表头。
func WriteCSV(w io.Writer, recs []domain.MovieRecord) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)

	rows := make([][]string, 0, len(recs)+1)
	rows = append(rows, domain.RecordFields)
	for _, r := range recs {
		rows = append(rows, r.Row())
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return tw.Close()
}
