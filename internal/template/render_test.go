package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwuu/diskup/internal/config"
)

func TestGetStaticFile_AppSettings(t *testing.T) {
	content, err := GetStaticFile(AppSettings)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "appsettings.json"), content, 0600))
	s, err := config.Load(config.LoadOptions{SearchDirs: []string{dir}, StateDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "appsettings.json"), s.ConfigFile)
	assert.Empty(t, s.App.OAuthToken)
}

func TestGetStaticFile_Unknown(t *testing.T) {
	_, err := GetStaticFile("templates/nope.json")
	assert.Error(t, err)
}

func TestRenderTemplate_Unknown(t *testing.T) {
	_, err := RenderTemplate("templates/nope.tmpl", &TemplateData{})
	assert.Error(t, err)
}

// loadRendered writes a rendered config into a state dir and loads it back.
func loadRendered(t *testing.T, data *TemplateData) config.Settings {
	t.Helper()
	content, err := RenderConfig(data)
	require.NoError(t, err)

	stateDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(stateDir, config.ConfigFileName), content, 0600))

	s, err := config.Load(config.LoadOptions{StateDir: stateDir})
	require.NoError(t, err, "rendered config:\n%s", content)
	return s
}

func TestRenderConfig_Disk(t *testing.T) {
	s := loadRendered(t, &TemplateData{
		Backend:    config.BackendDisk,
		Jobs:       3,
		DiskAPIURL: "http://localhost:8080/v1/disk",
	})

	assert.Equal(t, config.BackendDisk, s.Backend)
	assert.Equal(t, 3, s.Jobs)
	assert.Equal(t, "http://localhost:8080/v1/disk", s.Disk.APIURL)
	assert.NoError(t, s.Validate())
}

func TestRenderConfig_S3(t *testing.T) {
	s := loadRendered(t, &TemplateData{
		Backend:     config.BackendS3,
		RateLimit:   10,
		S3Bucket:    "backups",
		S3Region:    "eu-central-1",
		S3Endpoint:  "http://minio:9000",
		S3PathStyle: true,
	})

	assert.Equal(t, config.BackendS3, s.Backend)
	assert.Equal(t, 10, s.RateLimit)
	assert.Equal(t, "backups", s.S3.Bucket)
	assert.Equal(t, "eu-central-1", s.S3.Region)
	assert.Equal(t, "http://minio:9000", s.S3.Endpoint)
	assert.True(t, s.S3.PathStyle)
	assert.NoError(t, s.Validate())
}

func TestRenderConfig_SFTP(t *testing.T) {
	content, err := RenderConfig(&TemplateData{
		Backend:     config.BackendSFTP,
		SFTPHost:    "files.example.com",
		SFTPPort:    2222,
		SFTPUser:    "uploader",
		SFTPKeyFile: "/home/uploader/.ssh/id_ed25519",
		SFTPRoot:    "/srv/upload",
	})
	require.NoError(t, err)
	assert.NotContains(t, string(content), "s3:")
	assert.NotContains(t, string(content), "disk:")

	s := loadRendered(t, &TemplateData{
		Backend:     config.BackendSFTP,
		SFTPHost:    "files.example.com",
		SFTPPort:    2222,
		SFTPUser:    "uploader",
		SFTPKeyFile: "/home/uploader/.ssh/id_ed25519",
		SFTPRoot:    "/srv/upload",
	})
	assert.Equal(t, "files.example.com", s.SFTP.Host)
	assert.Equal(t, 2222, s.SFTP.Port)
	assert.Equal(t, "/srv/upload", s.SFTP.Root)
	assert.True(t, strings.HasPrefix(s.SFTP.KeyFile, "/home/uploader"))
	assert.NoError(t, s.Validate())
}
