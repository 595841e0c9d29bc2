package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	CredentialsFileName = "credentials"
)

// ErrMissingCredentials 表示 credentials 文件不存在或没有任何密钥
var ErrMissingCredentials = errors.New("no credentials found, run diskup init")

// Credentials 保存在 ~/.diskup/credentials 中，每行一个 key=value
type Credentials struct {
	OAuthToken      string // oauth_token，disk 后端
	AccessKeyID     string // access_key_id，s3 后端
	SecretAccessKey string // secret_access_key，s3 后端
}

// Empty 判断是否未设置任何密钥
func (c *Credentials) Empty() bool {
	return c.OAuthToken == "" && c.AccessKeyID == "" && c.SecretAccessKey == ""
}

// LoadCredentials 读取 ~/.diskup/credentials
func LoadCredentials() (*Credentials, error) {
	stateDir, err := GetStateDir()
	if err != nil {
		return nil, err
	}
	return LoadCredentialsFrom(filepath.Join(stateDir, CredentialsFileName))
}

// LoadCredentialsFrom 解析 credentials 文件。只按第一个 '=' 切分，跳过空行和 '#' 注释
func LoadCredentialsFrom(path string) (*Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissingCredentials
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	defer f.Close()

	kv := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	cred := &Credentials{
		OAuthToken:      kv["oauth_token"],
		AccessKeyID:     kv["access_key_id"],
		SecretAccessKey: kv["secret_access_key"],
	}
	if cred.Empty() {
		return nil, fmt.Errorf("%w: %s is empty", ErrMissingCredentials, path)
	}
	return cred, nil
}

// SaveCredentials 写入 ~/.diskup/credentials，权限 0600
func SaveCredentials(cred *Credentials) error {
	stateDir, err := GetStateDir()
	if err != nil {
		return err
	}
	return SaveCredentialsTo(filepath.Join(stateDir, CredentialsFileName), cred)
}

// SaveCredentialsTo 将 cred 写入 path，权限 0600，空字段不写
func SaveCredentialsTo(path string, cred *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var b strings.Builder
	for _, kv := range [][2]string{
		{"oauth_token", cred.OAuthToken},
		{"access_key_id", cred.AccessKeyID},
		{"secret_access_key", cred.SecretAccessKey},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, "%s=%s\n", kv[0], kv[1])
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}
