package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "DISKUP"

	BackendDisk = "disk"
	BackendS3   = "s3"
	BackendSFTP = "sftp"

	DefaultDiskAPIURL = "https://cloud-api.yandex.net/v1/disk"
)

// Backends lists the supported storage backends, default first.
var Backends = []string{BackendDisk, BackendS3, BackendSFTP}

var ErrUnknownBackend = errors.New("unknown backend")

// searchFiles are tried in order when no config file is given.
var searchFiles = []string{"appsettings.json", "appsettings.yaml"}

type AppSettings struct {
	OAuthToken string `mapstructure:"oauth_token"`
}

type DiskSettings struct {
	APIURL string `mapstructure:"api_url"`
}

type S3Settings struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
}

type SFTPSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	KeyFile    string `mapstructure:"key_file"`
	KnownHosts string `mapstructure:"known_hosts"`
	Root       string `mapstructure:"root"`
}

// Settings is the merged configuration of one run.
type Settings struct {
	Backend   string       `mapstructure:"backend"`
	Jobs      int          `mapstructure:"jobs"`
	RateLimit int          `mapstructure:"rate_limit"`
	LogLevel  string       `mapstructure:"log_level"`
	App       AppSettings  `mapstructure:"app"`
	Disk      DiskSettings `mapstructure:"disk"`
	S3        S3Settings   `mapstructure:"s3"`
	SFTP      SFTPSettings `mapstructure:"sftp"`

	// ConfigFile is the file the settings were read from, empty if none.
	ConfigFile string `mapstructure:"-"`
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// ConfigFile is an explicit config path; reading it must succeed.
	ConfigFile string
	// SearchDirs are scanned for appsettings.{json,yaml} when ConfigFile is empty.
	SearchDirs []string
	// StateDir holds config.yaml and the credentials file. Empty uses ~/.diskup.
	StateDir string
	// Flags are bound under their config key, with '-' mapped to '_'.
	Flags *pflag.FlagSet
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendDisk)
	v.SetDefault("jobs", 0)
	v.SetDefault("rate_limit", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("app.oauth_token", "")
	v.SetDefault("disk.api_url", DefaultDiskAPIURL)
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.path_style", false)
	v.SetDefault("sftp.host", "")
	v.SetDefault("sftp.port", 22)
	v.SetDefault("sftp.user", "")
	v.SetDefault("sftp.key_file", "")
	v.SetDefault("sftp.known_hosts", "")
	v.SetDefault("sftp.root", "/")
}

// Load merges flags, DISKUP_* environment variables, the config file and defaults, in that
// order of precedence. Secrets still missing afterwards are taken from the credentials file.
func Load(opts LoadOptions) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isKnownKey(v, key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Settings{}, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	stateDir := opts.StateDir
	if stateDir == "" {
		dir, err := GetStateDir()
		if err == nil {
			stateDir = dir
		}
	}

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = findConfigFile(opts.SearchDirs, stateDir)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode config: %w", err)
	}
	s.ConfigFile = configFile
	if s.App.OAuthToken == "" {
		// appsettings.json files written as {"App": {"OAuthToken": "..."}}
		s.App.OAuthToken = v.GetString("app.oauthtoken")
	}

	if stateDir != "" && (s.App.OAuthToken == "" || s.S3.AccessKeyID == "") {
		cred, err := LoadCredentialsFrom(filepath.Join(stateDir, CredentialsFileName))
		switch {
		case err == nil:
			s.applyCredentials(cred)
		case !errors.Is(err, ErrMissingCredentials):
			return Settings{}, err
		}
	}

	return s, nil
}

func isKnownKey(v *viper.Viper, key string) bool {
	for _, k := range v.AllKeys() {
		if k == key {
			return true
		}
	}
	return false
}

func findConfigFile(searchDirs []string, stateDir string) string {
	for _, dir := range searchDirs {
		for _, name := range searchFiles {
			if p := filepath.Join(dir, name); fileExists(p) {
				return p
			}
		}
	}
	if stateDir != "" {
		if p := filepath.Join(stateDir, ConfigFileName); fileExists(p) {
			return p
		}
	}
	return ""
}

func (s *Settings) applyCredentials(cred *Credentials) {
	if s.App.OAuthToken == "" {
		s.App.OAuthToken = cred.OAuthToken
	}
	if s.S3.AccessKeyID == "" && s.S3.SecretAccessKey == "" {
		s.S3.AccessKeyID = cred.AccessKeyID
		s.S3.SecretAccessKey = cred.SecretAccessKey
	}
}

// Validate checks the backend name, the numeric limits and the settings each backend cannot
// run without. A missing OAuth token is not an error here: the service rejects it.
func (s Settings) Validate() error {
	switch s.Backend {
	case BackendDisk:
	case BackendS3:
		if s.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required for the %s backend", BackendS3)
		}
	case BackendSFTP:
		if s.SFTP.Host == "" || s.SFTP.User == "" {
			return fmt.Errorf("sftp.host and sftp.user are required for the %s backend", BackendSFTP)
		}
		if s.SFTP.KeyFile == "" {
			return fmt.Errorf("%w: sftp.key_file is not set", ErrMissingCredentials)
		}
	default:
		return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownBackend, s.Backend, strings.Join(Backends, ", "))
	}

	if s.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", s.Jobs)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %d", s.RateLimit)
	}
	return nil
}
