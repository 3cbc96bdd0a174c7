// Package store 把每次爬取的结果保存到 SQLite，供 history/gallery 命令回放。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/John-Robertt/top250/internal/domain"
)

// FileName 是历史库在 history.dir 下的文件名。
const FileName = "top250.db"

// ErrRunNotFound 表示指定的 run id 不存在。
var ErrRunNotFound = errors.New("run 不存在")

// Store 是历史库句柄。只允许单连接（SQLite 单写者）。
type Store struct {
	db   *sql.DB
	path string
}

// RunInfo 是 runs 表的一行摘要。
type RunInfo struct {
	ID           int64     `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	BaseURL      string    `json:"base_url"`
	Records      int       `json:"records"`
	PagesFailed  int       `json:"pages_failed"`
	DetailFailed int       `json:"detail_failed"`
}

// Open 打开（必要时创建）<dir>/top250.db。
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建历史目录失败：%w", err)
	}
	path := filepath.Join(dir, FileName)

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("打开历史库失败：%w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, path: path}
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("启用 WAL 失败：%w", err)
	}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("建表失败：%w", err)
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) createTables(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		base_url TEXT NOT NULL,
		records INTEGER NOT NULL,
		pages_failed INTEGER NOT NULL,
		detail_failed INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS records (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		rank INTEGER NOT NULL,
		title TEXT NOT NULL,
		year TEXT NOT NULL,
		rerelease_years TEXT NOT NULL,
		rating TEXT NOT NULL,
		director TEXT NOT NULL,
		cast_list TEXT NOT NULL,
		box_office TEXT NOT NULL,
		comment1 TEXT NOT NULL,
		comment2 TEXT NOT NULL,
		comment3 TEXT NOT NULL,
		poster_url TEXT NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (run_id, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_records_title ON records(title);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveRun 在一个事务里写入 run 摘要与全部记录，返回新 run 的 id。
func (s *Store) SaveRun(ctx context.Context, rr domain.RunReport, recs []domain.MovieRecord) (int64, error) {
	reportJSON, err := json.Marshal(rr)
	if err != nil {
		return 0, fmt.Errorf("序列化 report 失败：%w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (started_at, finished_at, base_url, records, pages_failed, detail_failed, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatTime(rr.StartedAt), formatTime(rr.FinishedAt), rr.BaseURL,
		len(recs), rr.Summary.PagesFailed, rr.Summary.DetailFailed, string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("写入 run 失败：%w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO records (run_id, rank, title, year, rerelease_years, rating, director, cast_list,
		box_office, comment1, comment2, comment3, poster_url, url)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, runID, r.Rank, r.Title, r.Year, r.RereleaseYears, r.Rating,
			r.Director, r.Cast, r.BoxOffice, r.Comment1, r.Comment2, r.Comment3, r.PosterURL, r.URL); err != nil {
			return 0, fmt.Errorf("写入记录 rank=%d 失败：%w", r.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRuns 按时间倒序返回最近的 run；limit<=0 表示不限制。
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, started_at, finished_at, base_url, records, pages_failed, detail_failed
	FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RunInfo, 0)
	for rows.Next() {
		var (
			ri                RunInfo
			started, finished string
		)
		if err := rows.Scan(&ri.ID, &started, &finished, &ri.BaseURL, &ri.Records, &ri.PagesFailed, &ri.DetailFailed); err != nil {
			return nil, err
		}
		ri.StartedAt = parseTime(started)
		ri.FinishedAt = parseTime(finished)
		out = append(out, ri)
	}
	return out, rows.Err()
}

// LatestRunID 返回最近一次 run 的 id；库为空时返回 ErrRunNotFound。
func (s *Store) LatestRunID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRunNotFound
	}
	return id, err
}

// LoadRecords 按 rank 升序返回某次 run 的全部记录。
func (s *Store) LoadRecords(ctx context.Context, runID int64) ([]domain.MovieRecord, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w：id=%d", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT rank, title, year, rerelease_years, rating, director, cast_list,
		box_office, comment1, comment2, comment3, poster_url, url
	FROM records WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.MovieRecord, 0, domain.MaxRecords)
	for rows.Next() {
		var r domain.MovieRecord
		if err := rows.Scan(&r.Rank, &r.Title, &r.Year, &r.RereleaseYears, &r.Rating, &r.Director, &r.Cast,
			&r.BoxOffice, &r.Comment1, &r.Comment2, &r.Comment3, &r.PosterURL, &r.URL); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
