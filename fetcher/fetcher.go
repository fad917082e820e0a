// Package fetcher downloads the latest Quick Stats crops archive from the
// NASS FTP server.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/jlaffaye/ftp"

	"nass-harvest/config"
	"nass-harvest/models"
	"nass-harvest/utils"
)

const anonymousUser = "anonymous"

var (
	// ErrConnect is returned when the FTP session cannot be established.
	ErrConnect = errors.New("fetcher: connect")
	// ErrNoFiles is returned when the remote directory lists nothing.
	ErrNoFiles = errors.New("fetcher: no files found")
	// ErrNoMatchingFile is returned when no listed name has the configured prefix.
	ErrNoMatchingFile = errors.New("fetcher: no matching file")
)

// Conn is the subset of an FTP session the fetcher needs.
type Conn interface {
	Login(user, password string) error
	ChangeDir(path string) error
	NameList(path string) ([]string, error)
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// DialFunc opens an FTP session to addr.
type DialFunc func(ctx context.Context, addr string) (Conn, error)

// DialFTP is the production DialFunc backed by jlaffaye/ftp.
func DialFTP(ctx context.Context, addr string) (Conn, error) {
	c, err := ftp.Dial(addr, ftp.DialWithContext(ctx))
	if err != nil {
		return nil, err
	}
	return serverConn{c}, nil
}

type serverConn struct {
	*ftp.ServerConn
}

func (c serverConn) Retr(path string) (io.ReadCloser, error) {
	r, err := c.ServerConn.Retr(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Result describes a completed download.
type Result struct {
	RemoteName string
	LocalPath  string
	Bytes      int64
}

// Fetcher finds and downloads the crops archive.
type Fetcher struct {
	host   string
	dir    string
	prefix string
	local  string
	logger *utils.Logger
	dial   DialFunc
}

// New creates a Fetcher that talks to the real FTP server.
func New(cfg config.Config, logger *utils.Logger) *Fetcher {
	return NewWithDialer(cfg, logger, DialFTP)
}

// NewWithDialer creates a Fetcher using a custom DialFunc.
func NewWithDialer(cfg config.Config, logger *utils.Logger, dial DialFunc) *Fetcher {
	return &Fetcher{
		host:   cfg.FTPHost,
		dir:    cfg.FTPDir,
		prefix: cfg.FilePrefix,
		local:  cfg.LocalFile,
		logger: logger,
		dial:   dial,
	}
}

// Fetch lists the remote directory, selects the crops archive and writes it
// to the configured local path, replacing any previous download.
func (f *Fetcher) Fetch(ctx context.Context) (*Result, error) {
	f.logger.Info("[fetcher] Connecting to %s", f.host)

	conn, err := f.dial(ctx, f.host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, f.host, err)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			f.logger.Debug("[fetcher] quit: %v", err)
		}
	}()

	if err := conn.Login(anonymousUser, anonymousUser); err != nil {
		return nil, fmt.Errorf("%w: login to %s: %w", ErrConnect, f.host, err)
	}
	if err := conn.ChangeDir(f.dir); err != nil {
		return nil, fmt.Errorf("fetcher: cwd %q: %w", f.dir, err)
	}

	listing, err := f.list(conn)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("[fetcher] %d entries in /%s", len(listing), f.dir)

	name, ok := SelectFile(listing, f.prefix)
	if !ok {
		return nil, fmt.Errorf("%w: prefix %q among %d files", ErrNoMatchingFile, f.prefix, len(listing))
	}
	f.logger.Info("[fetcher] Downloading %s → %s", name, f.local)

	n, err := f.download(conn, name)
	if err != nil {
		return nil, err
	}
	f.logger.Info("[fetcher] Downloaded %s (%d bytes)", name, n)

	return &Result{RemoteName: name, LocalPath: f.local, Bytes: n}, nil
}

func (f *Fetcher) list(conn Conn) (models.RemoteListing, error) {
	names, err := conn.NameList("")
	if err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable {
			return nil, fmt.Errorf("%w in %q", ErrNoFiles, f.dir)
		}
		return nil, fmt.Errorf("fetcher: list %q: %w", f.dir, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoFiles, f.dir)
	}
	return models.RemoteListing(names), nil
}

func (f *Fetcher) download(conn Conn, name string) (int64, error) {
	if dir := filepath.Dir(f.local); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("fetcher: create dir: %w", err)
		}
	}

	r, err := conn.Retr(name)
	if err != nil {
		return 0, fmt.Errorf("fetcher: retr %q: %w", name, err)
	}

	out, err := os.Create(f.local)
	if err != nil {
		_ = r.Close()
		return 0, fmt.Errorf("fetcher: create %q: %w", f.local, err)
	}

	n, err := io.Copy(out, r)
	if err != nil {
		_ = r.Close()
		_ = out.Close()
		return n, fmt.Errorf("fetcher: download %q: %w", name, err)
	}
	// The transfer's final reply (226 or e.g. 426) only surfaces on Close.
	if err := r.Close(); err != nil {
		_ = out.Close()
		return n, fmt.Errorf("fetcher: retr %q: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("fetcher: close %q: %w", f.local, err)
	}
	return n, nil
}

// SelectFile returns the listed name starting with prefix. When several
// names match, the lexicographically greatest one (the latest release) wins.
func SelectFile(listing models.RemoteListing, prefix string) (string, bool) {
	var best string
	found := false
	for _, name := range listing {
		name = strings.TrimPrefix(name, "./")
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if !found || name > best {
			best = name
			found = true
		}
	}
	return best, found
}
