package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hwuu/diskup/internal/config"
	"github.com/hwuu/diskup/internal/remote"
	"github.com/hwuu/diskup/internal/s3store"
	"github.com/hwuu/diskup/internal/upload"
	"github.com/hwuu/diskup/internal/yadisk"
)

const msgInvalidCredentials = "Invalid credentials"

// openFunc returns the connector for the configured backend, throttled when a rate limit is set.
func openFunc(s config.Settings) remote.OpenFunc {
	return func(ctx context.Context) (remote.Storage, error) {
		storage, err := openBackend(ctx, s)
		if err != nil {
			return nil, err
		}
		return remote.Throttle(storage, s.RateLimit), nil
	}
}

func openBackend(ctx context.Context, s config.Settings) (remote.Storage, error) {
	switch s.Backend {
	case config.BackendDisk:
		c, err := yadisk.NewClient(ctx, yadisk.Options{
			BaseURL: s.Disk.APIURL,
			Token:   s.App.OAuthToken,
		})
		if err != nil {
			return nil, err
		}
		return c, nil

	case config.BackendS3:
		st, err := s3store.New(ctx, s3store.Options{
			Bucket:          s.S3.Bucket,
			Region:          s.S3.Region,
			Endpoint:        s.S3.Endpoint,
			AccessKeyID:     s.S3.AccessKeyID,
			SecretAccessKey: s.S3.SecretAccessKey,
			UsePathStyle:    s.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return st, nil

	case config.BackendSFTP:
		key, err := os.ReadFile(expandHome(s.SFTP.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}
		st, err := remote.DialSFTP(ctx, remote.SFTPOptions{
			Host:           s.SFTP.Host,
			Port:           s.SFTP.Port,
			User:           s.SFTP.User,
			PrivateKey:     key,
			KnownHostsFile: expandHome(s.SFTP.KnownHosts),
			Root:           s.SFTP.Root,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, s.Backend)
}

// authMessage is what the user sees when the backend rejects the credential.
func authMessage(backend string) string {
	if backend == config.BackendDisk {
		return upload.MsgInvalidToken
	}
	return msgInvalidCredentials
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
