package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDirs 创建目录(含父目录)
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败 [%s]: %w", dir, err)
		}
	}
	return nil
}

// WriteJSONFile 写入格式化JSON,先写临时文件再重命名
func WriteJSONFile(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := EnsureDirs(filepath.Dir(path)); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("写入文件失败 [%s]: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("写入文件失败 [%s]: %w", path, err)
	}
	return nil
}

// CheckWritable 检查目录可写
func CheckWritable(dir string) error {
	if err := EnsureDirs(dir); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("目录不可写 [%s]: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
