// Package tunnel dials the operations database through the team bastion.
// The database is never exposed directly; every connection is forwarded over
// SSH, surfaced to database/sql as a custom dialer.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Config describes the bastion connection.
type Config struct {
	Addr           string // bastion host:port
	User           string
	KeyPath        string // private key file
	KeyPassphrase  string // empty for an unencrypted key
	KnownHostsPath string // host key verification source
}

// Tunnel is an established SSH connection that can forward TCP dials.
type Tunnel struct {
	client    *ssh.Client
	logger    *zap.Logger
	closeOnce sync.Once
	closeErr  error
}

// Open connects to the bastion. logger may be nil.
func Open(cfg Config, logger *zap.Logger) (*Tunnel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}

	var signer ssh.Signer
	if cfg.KeyPassphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(cfg.KeyPassphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}

	hostKeys, err := knownhosts.New(cfg.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}

	client, err := ssh.Dial("tcp", cfg.Addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("dial bastion %s: %w", cfg.Addr, err)
	}

	logger.Info("ssh tunnel established", zap.String("bastion", cfg.Addr))
	return &Tunnel{client: client, logger: logger}, nil
}

// DialContext forwards a TCP dial through the bastion. Matches the dialer
// shape the mysql driver registers.
func (t *Tunnel) DialContext(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := t.client.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("forward dial %s: %w", addr, err)
	}
	return conn, nil
}

// Close tears the tunnel down. Safe to call more than once.
func (t *Tunnel) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.client.Close()
		t.logger.Info("ssh tunnel closed")
	})
	return t.closeErr
}
