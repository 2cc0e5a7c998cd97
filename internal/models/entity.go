package models

import "time"

// EntityKind 实体种类
type EntityKind string

const (
	KindMember  EntityKind = "member"
	KindThread  EntityKind = "thread"
	KindPost    EntityKind = "post"
	KindComment EntityKind = "comment"
	KindLike    EntityKind = "like"
)

// Entity 可按自然ID持久化的实体
type Entity interface {
	EntityID() string
	EntityKind() EntityKind
}

// Member 社区成员
type Member struct {
	ID            string     `json:"id"` // 从个人主页链接提取
	Username      string     `json:"username"`
	DisplayName   string     `json:"display_name"`
	Avatar        string     `json:"avatar,omitempty"`
	Bio           string     `json:"bio,omitempty"`
	JoinedAt      time.Time  `json:"joined_at"` // 首次写入后不再修改
	LastActiveAt  *time.Time `json:"last_active_at,omitempty"`
	Role          string     `json:"role,omitempty"`
	Points        *int       `json:"points,omitempty"`
	PostsCount    int        `json:"posts_count"`
	CommentsCount int        `json:"comments_count"`
	ScrapedAt     time.Time  `json:"scraped_at"`
}

func (m *Member) EntityID() string       { return m.ID }
func (m *Member) EntityKind() EntityKind { return KindMember }

// Thread 主题
type Thread struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	AuthorID     string     `json:"author_id"`
	CategoryID   string     `json:"category_id,omitempty"`
	CategoryName string     `json:"category_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	IsPinned     bool       `json:"is_pinned"`
	IsLocked     bool       `json:"is_locked"`
	ViewsCount   int        `json:"views_count"`
	PostsCount   int        `json:"posts_count"`
	LikesCount   int        `json:"likes_count"`
	ScrapedAt    time.Time  `json:"scraped_at"`
}

func (t *Thread) EntityID() string       { return t.ID }
func (t *Thread) EntityKind() EntityKind { return KindThread }

// Post 帖子,ParentPostID用于嵌套回复
type Post struct {
	ID           string     `json:"id"`
	ThreadID     string     `json:"thread_id"`
	AuthorID     string     `json:"author_id"`
	Content      string     `json:"content"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	LikesCount   int        `json:"likes_count"`
	ParentPostID string     `json:"parent_post_id,omitempty"`
	ScrapedAt    time.Time  `json:"scraped_at"`
}

func (p *Post) EntityID() string       { return p.ID }
func (p *Post) EntityKind() EntityKind { return KindPost }

// Comment 评论
type Comment struct {
	ID         string     `json:"id"`
	PostID     string     `json:"post_id"`
	AuthorID   string     `json:"author_id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	LikesCount int        `json:"likes_count"`
	ScrapedAt  time.Time  `json:"scraped_at"`
}

func (c *Comment) EntityID() string       { return c.ID }
func (c *Comment) EntityKind() EntityKind { return KindComment }

// LikeTarget 点赞目标类型
type LikeTarget string

const (
	LikeTargetThread  LikeTarget = "thread"
	LikeTargetPost    LikeTarget = "post"
	LikeTargetComment LikeTarget = "comment"
)

// Valid 检查目标类型是否合法
func (t LikeTarget) Valid() bool {
	switch t {
	case LikeTargetThread, LikeTargetPost, LikeTargetComment:
		return true
	}
	return false
}

// Like 点赞,TargetID指向三张表之一,不做外键约束
type Like struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	TargetType LikeTarget `json:"target_type"`
	TargetID   string     `json:"target_id"`
	CreatedAt  time.Time  `json:"created_at"`
	ScrapedAt  time.Time  `json:"scraped_at"`
}

func (l *Like) EntityID() string       { return l.ID }
func (l *Like) EntityKind() EntityKind { return KindLike }
