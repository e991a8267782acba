package file

import (
	"context"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxMediaBytes caps a single download.
const MaxMediaBytes = 20 << 20

// Fetcher downloads media over HTTP, optionally with basic auth (Twilio media URLs require the account
// SID and auth token).
type Fetcher struct {
	client   *http.Client
	username string
	password string
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

func NewBasicAuthFetcher(timeout time.Duration, username, password string) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		username: username,
		password: password,
	}
}

// Fetch returns the content of the file at url. A 404 is reported as domain.ErrMediaNotFound.
func (f *Fetcher) Fetch(ctx context.Context, url string) (domain.Media, error) {
	buf, contentType, err := f.download(ctx, url)
	if err != nil {
		return domain.Media{}, err
	}

	return domain.Media{Data: buf, MIMEType: mediaType(contentType, buf)}, nil
}

// DownloadFile returns the byte content of a file on a provided URL.
func (f *Fetcher) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	buf, _, err := f.download(ctx, url)
	return buf, err
}

func (f *Fetcher) download(ctx context.Context, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		err = fmt.Errorf("error creating request %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return nil, "", err
	}

	if f.username != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	res, err := f.client.Do(req)
	if err != nil {
		err = fmt.Errorf("error executing request %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return nil, "", err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		log.Warn().Str("path", path).Msg("file not found")
		return nil, "", fmt.Errorf("%w: %s", domain.ErrMediaNotFound, path)
	}

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status code on download: %d", res.StatusCode)
		log.Error().Err(err).Str("path", path).Send()
		return nil, "", err
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, MaxMediaBytes+1))
	if err != nil {
		err = fmt.Errorf("error reading response %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return nil, "", err
	}

	if len(buf) > MaxMediaBytes {
		return nil, "", fmt.Errorf("file exceeds %d bytes", MaxMediaBytes)
	}

	return buf, res.Header.Get("Content-Type"), nil
}

func mediaType(header string, data []byte) string {
	if header != "" {
		if parsed, _, err := mime.ParseMediaType(header); err == nil && parsed != "application/octet-stream" {
			return parsed
		}
	}

	parsed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return parsed
}

// LoadDocument reads the reference document from a local path or an http(s) URL.
func (f *Fetcher) LoadDocument(ctx context.Context, location string) (*domain.Document, error) {
	var (
		buf []byte
		err error
	)

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		buf, err = f.DownloadFile(ctx, location)
	} else {
		buf, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading reference document %s: %w", location, err)
	}

	if len(strings.TrimSpace(string(buf))) == 0 {
		return nil, fmt.Errorf("reference document %s is empty", location)
	}

	name := filepath.Base(location)
	log.Debug().Int("bytes", len(buf)).Str("document", name).Msg("loaded reference document")

	return &domain.Document{Name: name, Content: string(buf)}, nil
}
