package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
)

// ProgressStore 每种任务类型一行的检查点表
type ProgressStore struct {
	db  *sql.DB
	now func() time.Time
}

const progressColumns = `id, task_type, last_processed_id, last_processed_page, total_processed,
	status, started_at, completed_at, error`

const ensureProgressSQL = `INSERT INTO scrape_progress (task_type, status, total_processed)
	VALUES (?, 'pending', 0) ON CONFLICT(task_type) DO NOTHING`

// GetOrCreate 返回任务的检查点,不存在时以pending状态创建
// 依赖task_type唯一约束,重复调用不会产生多行
func (ps *ProgressStore) GetOrCreate(ctx context.Context, task models.TaskType) (*models.ScrapeProgress, error) {
	if _, err := execRetry(ctx, ps.db, ensureProgressSQL, string(task)); err != nil {
		return nil, fmt.Errorf("创建检查点失败 [%s]: %w", task, err)
	}
	return ps.Get(ctx, task)
}

// Get 读取检查点,不存在时返回ErrNotFound
func (ps *ProgressStore) Get(ctx context.Context, task models.TaskType) (*models.ScrapeProgress, error) {
	row := ps.db.QueryRowContext(ctx,
		"SELECT "+progressColumns+" FROM scrape_progress WHERE task_type = ?", string(task))
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取检查点失败 [%s]: %w", task, err)
	}
	return p, nil
}

// Update 合并部分字段到检查点
// 状态变为in_progress且started_at为空时写入开始时间;变为completed时写入完成时间
func (ps *ProgressStore) Update(ctx context.Context, task models.TaskType, u models.ProgressUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.LastProcessedID != nil {
		sets = append(sets, "last_processed_id = ?")
		args = append(args, *u.LastProcessedID)
	}
	if u.LastProcessedPage != nil {
		sets = append(sets, "last_processed_page = ?")
		args = append(args, *u.LastProcessedPage)
	}
	if u.TotalProcessed != nil {
		sets = append(sets, "total_processed = ?")
		args = append(args, *u.TotalProcessed)
	}
	if u.Status != nil {
		now := ps.now().Unix()
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
		switch *u.Status {
		case models.TaskStatusInProgress:
			sets = append(sets, "started_at = COALESCE(started_at, ?)")
			args = append(args, now)
		case models.TaskStatusCompleted:
			sets = append(sets, "completed_at = ?")
			args = append(args, now)
		}
	}
	if u.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, nullString(*u.Error))
	}
	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE scrape_progress SET " + strings.Join(sets, ", ") + " WHERE task_type = ?"
	args = append(args, string(task))

	err := runTx(ctx, ps.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, ensureProgressSQL, string(task)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("更新检查点失败 [%s]: %w", task, err)
	}
	return nil
}

// Reset 把检查点重置为全新的pending状态,开始新的任务生命周期
func (ps *ProgressStore) Reset(ctx context.Context, task models.TaskType) error {
	err := runTx(ctx, ps.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, ensureProgressSQL, string(task)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE scrape_progress SET
			last_processed_id = NULL, last_processed_page = NULL, total_processed = 0,
			status = 'pending', started_at = NULL, completed_at = NULL, error = NULL
			WHERE task_type = ?`, string(task))
		return err
	})
	if err != nil {
		return fmt.Errorf("重置检查点失败 [%s]: %w", task, err)
	}
	return nil
}

// List 返回全部检查点,按任务类型排序
func (ps *ProgressStore) List(ctx context.Context) ([]*models.ScrapeProgress, error) {
	rows, err := ps.db.QueryContext(ctx,
		"SELECT "+progressColumns+" FROM scrape_progress ORDER BY task_type")
	if err != nil {
		return nil, fmt.Errorf("查询检查点失败: %w", err)
	}
	defer rows.Close()

	var result []*models.ScrapeProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("读取检查点失败: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*models.ScrapeProgress, error) {
	var (
		p         models.ScrapeProgress
		task      string
		status    string
		lastID    sql.NullString
		lastPage  sql.NullInt64
		started   sql.NullInt64
		completed sql.NullInt64
		errMsg    sql.NullString
	)
	if err := row.Scan(&p.ID, &task, &lastID, &lastPage, &p.TotalProcessed,
		&status, &started, &completed, &errMsg); err != nil {
		return nil, err
	}

	p.TaskType = models.TaskType(task)
	p.Status = models.TaskStatus(status)
	if lastID.Valid {
		p.LastProcessedID = &lastID.String
	}
	if lastPage.Valid {
		page := int(lastPage.Int64)
		p.LastProcessedPage = &page
	}
	p.StartedAt = timePtr(started)
	p.CompletedAt = timePtr(completed)
	if errMsg.Valid {
		p.Error = &errMsg.String
	}
	return &p, nil
}
