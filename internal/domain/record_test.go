package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestNewMovieRecord_MergesSummaryAndDetail(t *testing.T) {
	s := ListingSummary{
		Title:    "肖申克的救赎",
		URL:      "https://movie.douban.com/subject/1292052/",
		Rating:   "9.7",
		Director: "弗兰克·德拉邦特 Frank Darabont",
		Cast:     "蒂姆·罗宾斯 Tim Robbins /...",
		Year:     "1994",
	}
	d := DetailInfo{
		BoxOffice:    "票房: 2834万",
		ReleaseYears: []string{"1994", "2024"},
		HotComments:  []string{"a", "b"},
		PosterURL:    "https://img.example/p.jpg",
	}

	r := NewMovieRecord(7, s, d)
	want := MovieRecord{
		Rank:           7,
		Title:          s.Title,
		Year:           "1994",
		RereleaseYears: "1994, 2024",
		Rating:         "9.7",
		Director:       s.Director,
		Cast:           s.Cast,
		BoxOffice:      "票房: 2834万",
		Comment1:       "a",
		Comment2:       "b",
		Comment3:       "",
		PosterURL:      d.PosterURL,
		URL:            s.URL,
	}
	if r != want {
		t.Fatalf("记录不符合预期：\ngot=%+v\nwant=%+v", r, want)
	}
	if got := r.HotComments(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("HotComments 不符合预期：%v", got)
	}
}

func TestNewMovieRecord_DefaultDetail(t *testing.T) {
	r := NewMovieRecord(1, ListingSummary{Title: "t", URL: "u"}, DefaultDetailInfo())
	if r.BoxOffice != BoxOfficeUnknown {
		t.Fatalf("期望票房为占位文本，实际=%q", r.BoxOffice)
	}
	if r.RereleaseYears != "" || r.Comment1 != "" || r.Comment2 != "" || r.Comment3 != "" || r.PosterURL != "" {
		t.Fatalf("默认详情应为空字段：%+v", r)
	}
}

func TestDetailInfo_RereleaseText_SingleYearIsEmpty(t *testing.T) {
	if got := (DetailInfo{ReleaseYears: []string{"1994"}}).RereleaseText(); got != "" {
		t.Fatalf("单个年份不算重映，实际=%q", got)
	}
}

func TestMovieRecord_RowMatchesFieldsAndJSONKeys(t *testing.T) {
	r := NewMovieRecord(1, ListingSummary{Title: "t"}, DefaultDetailInfo())
	if len(r.Row()) != len(RecordFields) {
		t.Fatalf("Row 长度 %d 与列数 %d 不一致", len(r.Row()), len(RecordFields))
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// JSON 字段名与 CSV 表头一致，且顺序相同。
	prev := -1
	for _, f := range RecordFields {
		idx := strings.Index(string(b), `"`+f+`"`)
		if idx < 0 {
			t.Fatalf("JSON 缺少字段 %q：%s", f, string(b))
		}
		if idx < prev {
			t.Fatalf("JSON 字段 %q 顺序错误：%s", f, string(b))
		}
		prev = idx
	}
}
