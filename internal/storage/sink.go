package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
)

// Sink 按自然ID幂等写入实体
// 已存在的ID只更新可变字段并刷新scraped_at,其余字段保持首次写入的值
type Sink struct {
	db *sql.DB
}

const upsertMemberSQL = `INSERT INTO members (id, username, display_name, avatar, bio, joined_at,
	last_active_at, role, points, posts_count, comments_count, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	last_active_at = COALESCE(excluded.last_active_at, members.last_active_at),
	role           = COALESCE(excluded.role, members.role),
	points         = COALESCE(excluded.points, members.points),
	posts_count    = excluded.posts_count,
	comments_count = excluded.comments_count,
	scraped_at     = excluded.scraped_at`

const upsertThreadSQL = `INSERT INTO threads (id, title, content, author_id, category_id, category_name,
	created_at, updated_at, is_pinned, is_locked, views_count, posts_count, likes_count, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title         = excluded.title,
	content       = excluded.content,
	category_id   = COALESCE(excluded.category_id, threads.category_id),
	category_name = COALESCE(excluded.category_name, threads.category_name),
	updated_at    = COALESCE(excluded.updated_at, threads.updated_at),
	is_pinned     = excluded.is_pinned,
	is_locked     = excluded.is_locked,
	views_count   = excluded.views_count,
	posts_count   = excluded.posts_count,
	likes_count   = excluded.likes_count,
	scraped_at    = excluded.scraped_at`

const upsertPostSQL = `INSERT INTO posts (id, thread_id, author_id, content, created_at, updated_at,
	likes_count, parent_post_id, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content     = excluded.content,
	updated_at  = COALESCE(excluded.updated_at, posts.updated_at),
	likes_count = excluded.likes_count,
	scraped_at  = excluded.scraped_at`

const upsertCommentSQL = `INSERT INTO comments (id, post_id, author_id, content, created_at, updated_at,
	likes_count, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content     = excluded.content,
	updated_at  = COALESCE(excluded.updated_at, comments.updated_at),
	likes_count = excluded.likes_count,
	scraped_at  = excluded.scraped_at`

const upsertLikeSQL = `INSERT INTO likes (id, user_id, target_type, target_id, created_at, scraped_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	scraped_at = excluded.scraped_at`

// Upsert 写入单个实体,失败时返回*models.PersistenceError
func (s *Sink) Upsert(ctx context.Context, e models.Entity) error {
	if e.EntityID() == "" {
		return &models.PersistenceError{Kind: e.EntityKind(), Cause: errors.New("缺少自然ID")}
	}

	query, args, err := upsertStatement(e)
	if err == nil {
		_, err = execRetry(ctx, s.db, query, args...)
	}
	if err != nil {
		return &models.PersistenceError{Kind: e.EntityKind(), ID: e.EntityID(), Cause: err}
	}
	return nil
}

func upsertStatement(e models.Entity) (string, []any, error) {
	switch v := e.(type) {
	case *models.Member:
		scraped := scrapedAt(v.ScrapedAt)
		var points sql.NullInt64
		if v.Points != nil {
			points = sql.NullInt64{Int64: int64(*v.Points), Valid: true}
		}
		return upsertMemberSQL, []any{
			v.ID, v.Username, v.DisplayName, nullString(v.Avatar), nullString(v.Bio),
			unixOr(v.JoinedAt, scraped), unixOrNull(v.LastActiveAt), nullString(v.Role), points,
			v.PostsCount, v.CommentsCount, scraped.Unix(),
		}, nil

	case *models.Thread:
		scraped := scrapedAt(v.ScrapedAt)
		return upsertThreadSQL, []any{
			v.ID, v.Title, v.Content, v.AuthorID, nullString(v.CategoryID), nullString(v.CategoryName),
			unixOr(v.CreatedAt, scraped), unixOrNull(v.UpdatedAt), boolInt(v.IsPinned), boolInt(v.IsLocked),
			v.ViewsCount, v.PostsCount, v.LikesCount, scraped.Unix(),
		}, nil

	case *models.Post:
		scraped := scrapedAt(v.ScrapedAt)
		return upsertPostSQL, []any{
			v.ID, v.ThreadID, v.AuthorID, v.Content, unixOr(v.CreatedAt, scraped), unixOrNull(v.UpdatedAt),
			v.LikesCount, nullString(v.ParentPostID), scraped.Unix(),
		}, nil

	case *models.Comment:
		scraped := scrapedAt(v.ScrapedAt)
		return upsertCommentSQL, []any{
			v.ID, v.PostID, v.AuthorID, v.Content, unixOr(v.CreatedAt, scraped), unixOrNull(v.UpdatedAt),
			v.LikesCount, scraped.Unix(),
		}, nil

	case *models.Like:
		if !v.TargetType.Valid() {
			return "", nil, fmt.Errorf("无效的点赞目标类型: %q", v.TargetType)
		}
		scraped := scrapedAt(v.ScrapedAt)
		return upsertLikeSQL, []any{
			v.ID, v.UserID, string(v.TargetType), v.TargetID, unixOr(v.CreatedAt, scraped), scraped.Unix(),
		}, nil
	}
	return "", nil, fmt.Errorf("不支持的实体类型: %T", e)
}

func scrapedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// GetMember 按ID读取成员
func (s *Store) GetMember(ctx context.Context, id string) (*models.Member, error) {
	var (
		m          models.Member
		avatar     sql.NullString
		bio        sql.NullString
		role       sql.NullString
		points     sql.NullInt64
		joined     int64
		lastActive sql.NullInt64
		scraped    int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, username, display_name, avatar, bio, joined_at,
		last_active_at, role, points, posts_count, comments_count, scraped_at
		FROM members WHERE id = ?`, id).Scan(
		&m.ID, &m.Username, &m.DisplayName, &avatar, &bio, &joined,
		&lastActive, &role, &points, &m.PostsCount, &m.CommentsCount, &scraped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取成员失败 [%s]: %w", id, err)
	}

	m.Avatar = avatar.String
	m.Bio = bio.String
	m.Role = role.String
	if points.Valid {
		p := int(points.Int64)
		m.Points = &p
	}
	m.JoinedAt = time.Unix(joined, 0)
	m.LastActiveAt = timePtr(lastActive)
	m.ScrapedAt = time.Unix(scraped, 0)
	return &m, nil
}
