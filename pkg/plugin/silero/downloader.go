package silero

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Downloader fetches the Silero model into Dir. It implements
// plugin.Downloader.
type Downloader struct {
	Dir    string
	URL    string
	Client *http.Client
}

// NewDownloader returns a Downloader for DefaultModelDir and ModelURL.
func NewDownloader() *Downloader {
	return &Downloader{
		Dir:    DefaultModelDir(),
		URL:    ModelURL,
		Client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Path is where the model is stored.
func (d *Downloader) Path() string {
	return filepath.Join(d.Dir, ModelFileName)
}

// Download fetches the model unless a non-empty copy already exists.
func (d *Downloader) Download() error {
	return d.DownloadContext(context.Background())
}

func (d *Downloader) DownloadContext(ctx context.Context) error {
	path := d.Path()
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		slog.Info("Silero VAD model already exists", slog.String("model_path", path))
		return nil
	}

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	slog.Info("Downloading Silero VAD model",
		slog.String("url", d.URL),
		slog.String("model_path", path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return err
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", d.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", d.URL, resp.StatusCode)
	}

	// Write to a temp file so an interrupted download never looks complete.
	tmp, err := os.CreateTemp(d.Dir, ModelFileName+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("download %s: empty body", d.URL)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install model: %w", err)
	}

	slog.Info("Silero VAD model downloaded",
		slog.String("model_path", path),
		slog.Int64("bytes", n))
	return nil
}
