package main

import (
	"fmt"

	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
)

// ValidateFlags 验证命令行参数
func ValidateFlags(communityURL string, delay int, tasks []string) error {
	if err := models.ValidateURL(communityURL); err != nil {
		return fmt.Errorf("无效的社区URL: %w", err)
	}

	if delay < 0 || delay > 60000 {
		return fmt.Errorf("翻页延迟必须在0-60000毫秒之间,当前值: %d", delay)
	}

	for _, t := range tasks {
		if _, err := models.ParseTaskType(t); err != nil {
			return err
		}
	}
	return nil
}
