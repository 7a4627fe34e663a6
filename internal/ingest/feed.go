package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"
)

// FeedClient mirrors CSV feeds from the municipal FTP drop to the local
// data directory. Transient failures are retried with exponential backoff.
type FeedClient struct {
	host    string
	user    string
	pass    string
	timeout time.Duration
}

func NewFeedClient(host, user, pass string) *FeedClient {
	if user == "" {
		user = "anonymous"
		pass = "anonymous"
	}
	return &FeedClient{host: host, user: user, pass: pass, timeout: 30 * time.Second}
}

// Fetch downloads one remote file.
func (c *FeedClient) Fetch(remotePath string) ([]byte, error) {
	var body []byte

	operation := func() error {
		conn, err := ftp.Dial(c.host, ftp.DialWithTimeout(c.timeout))
		if err != nil {
			return fmt.Errorf("ftp dial %s: %w", c.host, err)
		}
		defer conn.Quit()

		if err := conn.Login(c.user, c.pass); err != nil {
			return backoff.Permanent(fmt.Errorf("ftp login: %w", err))
		}

		resp, err := conn.Retr(remotePath)
		if err != nil {
			return fmt.Errorf("ftp retr %s: %w", remotePath, err)
		}
		defer resp.Close()

		body, err = io.ReadAll(resp)
		if err != nil {
			return fmt.Errorf("read %s: %w", remotePath, err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return body, nil
}

// Mirror downloads a remote file and writes it to localPath atomically
// (temp file plus rename), so a reader never sees a half-written feed.
func (c *FeedClient) Mirror(remotePath, localPath string) error {
	body, err := c.Fetch(remotePath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := localPath + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, localPath); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
