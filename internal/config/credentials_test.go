package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials")
	cred := &Credentials{
		OAuthToken:      "AQAAAAA-token",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret=with=equals", // secret 中包含 = 字符
	}

	if err := SaveCredentialsTo(path, cred); err != nil {
		t.Fatalf("SaveCredentialsTo failed: %v", err)
	}

	// 验证文件权限为 600
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected permission 0600, got %04o", perm)
	}

	loaded, err := LoadCredentialsFrom(path)
	if err != nil {
		t.Fatalf("LoadCredentialsFrom failed: %v", err)
	}
	if *loaded != *cred {
		t.Errorf("expected %+v, got %+v", *cred, *loaded)
	}
}

func TestSaveCredentials_SkipsEmptyFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")

	if err := SaveCredentialsTo(path, &Credentials{OAuthToken: "tok"}); err != nil {
		t.Fatalf("SaveCredentialsTo failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "oauth_token=tok\n" {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestLoadCredentials_NotFound(t *testing.T) {
	_, err := LoadCredentialsFrom(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestLoadCredentials_CommentsAndBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	content := "# diskup credentials\n\n  oauth_token = abc \nunknown=1\nnot a pair\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cred, err := LoadCredentialsFrom(path)
	if err != nil {
		t.Fatalf("LoadCredentialsFrom failed: %v", err)
	}
	if cred.OAuthToken != "abc" {
		t.Errorf("expected abc, got %q", cred.OAuthToken)
	}
}

func TestLoadCredentials_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	if err := os.WriteFile(path, []byte("# nothing yet\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadCredentialsFrom(path); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestStateDir_UnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := GetStateDir()
	if err != nil {
		t.Fatalf("GetStateDir failed: %v", err)
	}
	if dir != filepath.Join(home, ".diskup") {
		t.Errorf("unexpected state dir %s", dir)
	}

	if err := EnsureStateDir(); err != nil {
		t.Fatalf("EnsureStateDir failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("expected permission 0700, got %04o", perm)
	}

	p, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if p != filepath.Join(dir, "config.yaml") {
		t.Errorf("unexpected config path %s", p)
	}
}
