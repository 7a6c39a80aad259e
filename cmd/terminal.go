package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/jhorman9/elevideo/internal/ports"
)

// terminalPorts prints notifications and remembers a forced sign-in.
type terminalPorts struct {
	out io.Writer

	mu       sync.Mutex
	signInAt string
}

func newTerminalPorts(out io.Writer) *terminalPorts {
	return &terminalPorts{out: out}
}

func (p *terminalPorts) Notify(n ports.Notification) {
	mark := "✓"
	if n.Severity == ports.SeverityDestructive {
		mark = "✗"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if n.Description == "" {
		fmt.Fprintf(p.out, "%s %s\n", mark, n.Title)
		return
	}
	fmt.Fprintf(p.out, "%s %s: %s\n", mark, n.Title, n.Description)
}

func (p *terminalPorts) Navigate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if path == ports.LoginPath {
		p.signInAt = path
	}
}

func (p *terminalPorts) SignInRequired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signInAt != ""
}

// fileDownloader streams a download link into a directory.
type fileDownloader struct {
	dir    string
	client *http.Client
	out    io.Writer
}

func (d *fileDownloader) Download(ctx context.Context, link ports.DownloadLink) error {
	name := filepath.Base(strings.TrimSpace(link.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "video"
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	dest := filepath.Join(d.dir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.URL, nil)
	if err != nil {
		return fmt.Errorf("invalid download url: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	pf, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer pf.Cleanup()

	n, err := io.Copy(pf, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to save %s: %w", dest, err)
	}
	fmt.Fprintf(d.out, "Saved %s (%d bytes)\n", dest, n)
	return nil
}
