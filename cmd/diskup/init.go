package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hwuu/diskup/internal/config"
	tmpl "github.com/hwuu/diskup/internal/template"
)

const flagAppSettings = "appsettings"

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively write ~/.diskup/config.yaml and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := cmd.Flags().GetString(flagConfig)
			if err != nil {
				return err
			}
			if err := runInit(cmd, config.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), configPath); err != nil {
				return err
			}
			withSample, err := cmd.Flags().GetBool(flagAppSettings)
			if err != nil || !withSample {
				return err
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			return writeAppSettings(cmd, wd)
		},
	}
	cmd.Flags().Bool(flagAppSettings, false, "also write an appsettings.json sample to the current directory")
	return cmd
}

func runInit(cmd *cobra.Command, p *config.Prompter, configPath string) error {
	out := cmd.OutOrStdout()

	idx, err := p.PromptSelect("Storage backend:", config.Backends)
	if err != nil {
		return err
	}
	data := &tmpl.TemplateData{Backend: config.Backends[idx]}
	cred := &config.Credentials{}

	switch data.Backend {
	case config.BackendDisk:
		data.DiskAPIURL = config.DefaultDiskAPIURL
		if cred.OAuthToken, err = p.PromptPassword("OAuth token: "); err != nil {
			return err
		}
	case config.BackendS3:
		if err := promptS3(p, data, cred); err != nil {
			return err
		}
	case config.BackendSFTP:
		if err := promptSFTP(p, data); err != nil {
			return err
		}
	}

	jobs, err := p.PromptWithDefault("Concurrent uploads (0 = no limit)", "0")
	if err != nil {
		return err
	}
	if data.Jobs, err = strconv.Atoi(jobs); err != nil || data.Jobs < 0 {
		return fmt.Errorf("invalid number of uploads: %s", jobs)
	}
	rate, err := p.PromptWithDefault("Remote requests per second (0 = no limit)", "0")
	if err != nil {
		return err
	}
	if data.RateLimit, err = strconv.Atoi(rate); err != nil || data.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %s", rate)
	}

	if !cred.Empty() {
		if err := config.SaveCredentials(cred); err != nil {
			return err
		}
		fmt.Fprintln(out, "Credentials saved to ~/.diskup/credentials")
	}

	if configPath == "" {
		if err := config.EnsureStateDir(); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		if configPath, err = config.GetConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := p.PromptConfirm(fmt.Sprintf("%s already exists. Overwrite?", configPath), false)
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Fprintln(out, "Keeping the existing config file")
			return nil
		}
	}

	content, err := tmpl.RenderConfig(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(out, "Config written to %s\n", configPath)
	return nil
}

// writeAppSettings copies the appsettings.json sample into dir unless one is already there.
func writeAppSettings(cmd *cobra.Command, dir string) error {
	out := cmd.OutOrStdout()
	target := filepath.Join(dir, "appsettings.json")
	if _, err := os.Stat(target); err == nil {
		fmt.Fprintf(out, "%s already exists, not touching it\n", target)
		return nil
	}

	content, err := tmpl.GetStaticFile(tmpl.AppSettings)
	if err != nil {
		return err
	}
	if err := os.WriteFile(target, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	fmt.Fprintf(out, "Sample written to %s\n", target)
	return nil
}

func promptS3(p *config.Prompter, data *tmpl.TemplateData, cred *config.Credentials) error {
	var err error
	if data.S3Bucket, err = p.Prompt("Bucket: "); err != nil {
		return err
	}
	if data.S3Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if data.S3Region, err = p.PromptWithDefault("Region", "us-east-1"); err != nil {
		return err
	}
	if data.S3Endpoint, err = p.Prompt("Endpoint (empty for AWS): "); err != nil {
		return err
	}
	if data.S3Endpoint != "" {
		if data.S3PathStyle, err = p.PromptConfirm("Use path-style addressing?", true); err != nil {
			return err
		}
	}
	if cred.AccessKeyID, err = p.Prompt("Access key ID (empty for the default AWS chain): "); err != nil {
		return err
	}
	if cred.AccessKeyID != "" {
		if cred.SecretAccessKey, err = p.PromptPassword("Secret access key: "); err != nil {
			return err
		}
	}
	return nil
}

func promptSFTP(p *config.Prompter, data *tmpl.TemplateData) error {
	var err error
	if data.SFTPHost, err = p.Prompt("Host: "); err != nil {
		return err
	}
	port, err := p.PromptWithDefault("Port", strconv.Itoa(22))
	if err != nil {
		return err
	}
	if data.SFTPPort, err = strconv.Atoi(port); err != nil {
		return fmt.Errorf("invalid port: %s", port)
	}
	if data.SFTPUser, err = p.Prompt("User: "); err != nil {
		return err
	}
	if data.SFTPKeyFile, err = p.PromptWithDefault("Private key file", "~/.ssh/id_ed25519"); err != nil {
		return err
	}
	if data.SFTPRoot, err = p.PromptWithDefault("Remote root", "/"); err != nil {
		return err
	}
	if data.SFTPHost == "" || data.SFTPUser == "" {
		return fmt.Errorf("host and user are required")
	}
	return nil
}
