package utils

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 运行报告生成器
type Reporter struct {
	reportsDir string
}

// NewReporter 创建报告生成器
func NewReporter(reportsDir string) *Reporter {
	return &Reporter{reportsDir: reportsDir}
}

// SaveRunReport 保存运行报告,返回文件路径
func (r *Reporter) SaveRunReport(report *models.RunReport) (string, error) {
	name := fmt.Sprintf("run_%s.json", report.StartTime.Format("20060102_150405"))
	path := filepath.Join(r.reportsDir, name)
	if err := WriteJSONFile(path, report); err != nil {
		return "", err
	}
	Debugf("保存报告: %s", path)
	return path, nil
}

// NewProgressBarTo 创建写入指定输出的进度条
func NewProgressBarTo(w io.Writer, max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
