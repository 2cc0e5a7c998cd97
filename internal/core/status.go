package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/RecoveryAshes/SkoolCrawl/internal/storage"
)

// Status 检查点与内容表的当前状态
type Status struct {
	Checkpoints []*models.ScrapeProgress
	RowCounts   map[string]int
}

// LoadStatus 打开数据库读取所有检查点和各表行数
func LoadStatus(ctx context.Context, dbPath string) (*Status, error) {
	store, err := storage.Open(dbPath, storage.DefaultOptions())
	if err != nil {
		return nil, err
	}
	defer store.Close()

	cps, err := store.Progress.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{Checkpoints: cps, RowCounts: counts}, nil
}

// Print 以表格形式输出
func (s *Status) Print(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "任务\t状态\t最后页\t累计\t最后ID\t开始\t完成\t错误")
	if len(s.Checkpoints) == 0 {
		fmt.Fprintln(tw, "(无检查点)\t\t\t\t\t\t\t")
	}
	for _, cp := range s.Checkpoints {
		page := "-"
		if cp.LastProcessedPage != nil {
			page = fmt.Sprint(*cp.LastProcessedPage)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			cp.TaskType, cp.Status, page, cp.TotalProcessed,
			orDash(cp.LastProcessedID), formatTime(cp.StartedAt), formatTime(cp.CompletedAt),
			truncate(orDash(cp.Error), 60))
	}
	tw.Flush()

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "表\t行数")
	for _, table := range storage.ContentTables() {
		fmt.Fprintf(tw, "%s\t%d\n", table, s.RowCounts[table])
	}
	tw.Flush()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
