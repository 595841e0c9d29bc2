// Package config loads diskup settings and manages the per-user state directory that holds the
// credentials file and the default config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	StateDirName   = ".diskup" // 位于用户 home 目录下
	ConfigFileName = "config.yaml"
)

// GetStateDir 返回 ~/.diskup
func GetStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, StateDirName), nil
}

// GetConfigPath 返回 ~/.diskup/config.yaml
func GetConfigPath() (string, error) {
	stateDir, err := GetStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, ConfigFileName), nil
}

// EnsureStateDir 创建状态目录，仅当前用户可访问
func EnsureStateDir() error {
	stateDir, err := GetStateDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(stateDir, 0700)
}

// fileExists 判断 path 是否为已存在的普通文件
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
