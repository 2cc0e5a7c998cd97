// Package storage 基于SQLite的检查点与实体持久化
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

const maxRetries = 3

// Options 打开数据库的参数
type Options struct {
	BusyTimeout time.Duration
	Synchronous string
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		BusyTimeout: 10 * time.Second,
		Synchronous: "NORMAL",
	}
}

// Store SQLite存储,持有检查点表和内容表
type Store struct {
	db       *sql.DB
	path     string
	Progress *ProgressStore
	Sink     *Sink
}

// Open 打开(或创建)数据库并应用schema
// path为":memory:"时限制为单连接,保证所有查询落在同一个内存库
func Open(path string, opts Options) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	dsn, err := buildDSN(path, opts)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化schema失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接检查失败: %w", err)
	}

	return &Store{
		db:       db,
		path:     path,
		Progress: &ProgressStore{db: db, now: time.Now},
		Sink:     &Sink{db: db},
	}, nil
}

var synchronousModes = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}

// buildDSN 把pragma放进DSN,驱动在每个新连接上执行
func buildDSN(path string, opts Options) (string, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultOptions().BusyTimeout
	}
	if opts.Synchronous == "" {
		opts.Synchronous = DefaultOptions().Synchronous
	}
	mode := strings.ToUpper(opts.Synchronous)
	if !synchronousModes[mode] {
		return "", fmt.Errorf("无效的synchronous模式: %q", opts.Synchronous)
	}

	q := url.Values{}
	q.Add("_pragma", "foreign_keys(0)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	q.Add("_pragma", fmt.Sprintf("synchronous(%s)", mode))
	return path + "?" + q.Encode(), nil
}

// Path 数据库文件路径
func (s *Store) Path() string {
	return s.path
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// Counts 返回每张内容表的行数
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(contentTables))
	for _, table := range contentTables {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("统计%s行数失败: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// isBusy 判断是否为SQLITE_BUSY类错误
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// execRetry 执行语句,遇到BUSY时按100/200/300ms退避重试
func execRetry(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		result, err := db.ExecContext(ctx, query, args...)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isBusy(err) || i == maxRetries-1 {
			break
		}
		if err := sleepCtx(ctx, time.Duration(100*(i+1))*time.Millisecond); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// runTx 在事务中执行fn,遇到BUSY时重试
func runTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lastErr = runOnce(ctx, db, fn)
		if lastErr == nil {
			return nil
		}
		if !isBusy(lastErr) || i == maxRetries-1 {
			break
		}
		if err := sleepCtx(ctx, time.Duration(100*(i+1))*time.Millisecond); err != nil {
			return err
		}
	}
	return lastErr
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func unixOrNull(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

// unixOr 零值时间用fallback代替
func unixOr(t, fallback time.Time) int64 {
	if t.IsZero() {
		return fallback.Unix()
	}
	return t.Unix()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
