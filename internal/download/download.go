// Package download streams release archives and their side files over HTTP.
//
// Downloads are never retried; a failed transfer fails the caller, who may
// simply run the command again.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultTimeout bounds a whole transfer, including the body.
	DefaultTimeout = 30 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "govem"
	// MaxSideFileSize bounds checksum and signature files.
	MaxSideFileSize = 1 << 20
)

// ErrNotFound is returned when the server answers 404. Optional side files
// (checksums, signatures) treat it as "not published".
var ErrNotFound = errors.New("not found")

// ProgressFunc receives the bytes written so far and the expected total,
// which is -1 when the server sends no Content-Length.
type ProgressFunc func(written, total int64)

// Downloader performs HTTP GETs.
type Downloader struct {
	client    *http.Client
	userAgent string
}

// New creates a Downloader. A nil client gets a default client with
// DefaultTimeout and a redirect cap.
func New(client *http.Client, userAgent string) *Downloader {
	if client == nil {
		client = &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Downloader{client: client, userAgent: userAgent}
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: unexpected status code: %d", url, resp.StatusCode)
	}
}

// ToFile streams url into destPath. The body goes to destPath.tmp first and
// is renamed into place only after a complete, length-checked transfer, so
// destPath never holds a partial archive.
func (d *Downloader) ToFile(ctx context.Context, url, destPath string, progress ProgressFunc) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	var dst io.Writer = tmpFile
	if progress != nil {
		dst = &progressWriter{w: tmpFile, total: resp.ContentLength, fn: progress}
	}

	written, err := io.Copy(dst, resp.Body)
	if err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return fmt.Errorf("short download: got %d of %d bytes", written, resp.ContentLength)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return nil
}

// Bytes fetches a small document such as a checksum list or signature.
func (d *Downloader) Bytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSideFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(data) > MaxSideFileSize {
		return nil, fmt.Errorf("%s: response larger than %d bytes", url, MaxSideFileSize)
	}
	return data, nil
}

type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.fn(p.written, p.total)
	return n, err
}
