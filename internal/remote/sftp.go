package remote

// sftp.go implements Storage over SFTP (an SSH connection with key authentication).
// Remote paths are resolved under a configurable root directory.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const DefaultSSHPort = 22

// SFTPOptions configures the SSH connection behind SFTPStorage.
type SFTPOptions struct {
	Host           string
	Port           int
	User           string
	PrivateKey     []byte
	KnownHostsFile string // empty disables host key verification
	Root           string
	Timeout        time.Duration
}

// SFTPStorage is a Storage backed by an SFTP session.
type SFTPStorage struct {
	client *sftp.Client
	root   string
	conn   io.Closer
}

// NewSFTPStorage wraps an established SFTP client. conn, if not nil, is closed with the storage.
func NewSFTPStorage(client *sftp.Client, root string, conn io.Closer) *SFTPStorage {
	return &SFTPStorage{client: client, root: root, conn: conn}
}

// DialSFTP opens an SSH connection, starts the SFTP subsystem and returns the storage.
func DialSFTP(ctx context.Context, opts SFTPOptions) (*SFTPStorage, error) {
	signer, err := ssh.ParsePrivateKey(opts.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH private key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if opts.KnownHostsFile != "" {
		hostKeyCallback, err = knownhosts.New(opts.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts %s: %w", opts.KnownHostsFile, err)
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	port := opts.Port
	if port == 0 {
		port = DefaultSSHPort
	}

	config := &ssh.ClientConfig{
		User: opts.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		netConn.Close()
		if isSSHAuthError(err) {
			return nil, fmt.Errorf("%w: %v", ErrNotAuthorized, err)
		}
		return nil, fmt.Errorf("SSH handshake with %s: %w", addr, err)
	}
	sshConn := ssh.NewClient(c, chans, reqs)

	sftpConn, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, fmt.Errorf("failed to start SFTP session: %w", err)
	}

	return NewSFTPStorage(sftpConn, opts.Root, sshConn), nil
}

func isSSHAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

func (s *SFTPStorage) resolve(p string) string {
	return path.Join(Separator, s.root, p)
}

func (s *SFTPStorage) GetMetadata(ctx context.Context, p string) (*Resource, error) {
	full := s.resolve(p)
	infos, err := s.client.ReadDir(full)
	if err != nil {
		return nil, wrapSFTPError("read directory", full, err)
	}

	res := &Resource{Path: p, Items: make([]Item, 0, len(infos))}
	for _, info := range infos {
		typ := TypeFile
		if info.IsDir() {
			typ = TypeDir
		}
		res.Items = append(res.Items, Item{Name: info.Name(), Type: typ})
	}
	return res, nil
}

func (s *SFTPStorage) CreateDirectory(ctx context.Context, p string) error {
	full := s.resolve(p)
	if err := s.client.Mkdir(full); err != nil {
		return wrapSFTPError("create directory", full, err)
	}
	return nil
}

// GetUploadLink returns the resolved target path as the handle. With overwrite unset an
// existing target is refused.
func (s *SFTPStorage) GetUploadLink(ctx context.Context, p string, overwrite bool) (*Link, error) {
	full := s.resolve(p)
	if !overwrite {
		if _, err := s.client.Stat(full); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, full)
		}
	}
	return &Link{Href: full, Method: "PUT"}, nil
}

func (s *SFTPStorage) Upload(ctx context.Context, link *Link, r io.Reader, size int64) error {
	f, err := s.client.OpenFile(link.Href, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return wrapSFTPError("create remote file", link.Href, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write remote file %s: %w", link.Href, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close remote file %s: %w", link.Href, err)
	}
	return nil
}

func (s *SFTPStorage) Close() error {
	err := s.client.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func wrapSFTPError(op, p string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", op, p, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, p, err)
}
