// Package artifact downloads the trained model produced by a finished training run.
package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrMissingID = errors.New("Model ID is required for download")

type Request struct {
	ID       int
	URL      string
	Filename string
}

func Filename(id int) string {
	return fmt.Sprintf("model-%d.pkl", id)
}

// Saver performs the actual transfer. It is called at most once per Download.
type Saver interface {
	Save(ctx context.Context, req Request) error
}

type Logger interface {
	Append(message string)
}

type LoggerFunc func(message string)

func (f LoggerFunc) Append(message string) { f(message) }

type Downloader struct {
	urlFor func(id int) string
	saver  Saver
	log    Logger
}

func NewDownloader(urlFor func(id int) string, saver Saver, logger Logger) *Downloader {
	if logger == nil {
		logger = LoggerFunc(func(string) {})
	}
	return &Downloader{urlFor: urlFor, saver: saver, log: logger}
}

func (d *Downloader) Prepare(id *int) (Request, error) {
	if id == nil {
		return Request{}, ErrMissingID
	}
	return Request{ID: *id, URL: d.urlFor(*id), Filename: Filename(*id)}, nil
}

// Download reports whether the artifact was handed to the saver successfully.
// Every outcome leaves a line in the log; nothing is retried.
func (d *Downloader) Download(ctx context.Context, id *int) bool {
	d.log.Append(fmt.Sprintf("Initiating download for model: %s", formatID(id)))

	req, err := d.Prepare(id)
	if err != nil {
		d.log.Append(fmt.Sprintf("Error downloading model: %s", err.Error()))
		return false
	}
	if d.saver == nil {
		d.log.Append("Error downloading model: no saver configured")
		return false
	}

	if err := d.saver.Save(ctx, req); err != nil {
		log.Error().Err(err).Str("url", req.URL).Msg("model download failed")
		d.log.Append(fmt.Sprintf("Error downloading model: %s", err.Error()))
		return false
	}

	d.log.Append(fmt.Sprintf("Download started for model: %d", req.ID))
	return true
}

func formatID(id *int) string {
	if id == nil {
		return "null"
	}
	return strconv.Itoa(*id)
}

// HTTPSaver streams the artifact into Dir/<filename>. The file only appears once complete.
type HTTPSaver struct {
	Client *http.Client
	Dir    string
}

func (s *HTTPSaver) Save(ctx context.Context, req Request) error {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return errors.Wrap(err, "create download request")
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "request artifact")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir download dir")
	}
	tmp, err := os.CreateTemp(dir, "."+req.Filename+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, "write artifact")
	}

	dest := filepath.Join(dir, req.Filename)
	if err := os.Rename(tmpName, dest); err != nil {
		return errors.Wrap(err, "move artifact into place")
	}
	log.Info().Str("path", dest).Int64("bytes", n).Msg("model saved")
	return nil
}
