package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// Source yields a fresh patient table on every call.
type Source interface {
	Load(ctx context.Context) (*Table, error)
	String() string
}

// FileSource reads a CSV file from local disk.
type FileSource struct {
	Path     string
	Encoding string
}

func (s FileSource) Load(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	table, err := ReadCSV(file, s.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return table, nil
}

func (s FileSource) String() string {
	return "file:" + s.Path
}

// HTTPSource downloads a CSV document over HTTP(S).
type HTTPSource struct {
	URL      string
	Encoding string
	Timeout  time.Duration

	client *resty.Client
}

func NewHTTPSource(url, encoding string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		URL:      url,
		Encoding: encoding,
		Timeout:  timeout,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5"),
	}
}

func (s *HTTPSource) Load(ctx context.Context) (*Table, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", s.URL, resp.Status())
	}
	table, err := ReadCSV(bytes.NewReader(resp.Body()), s.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.URL, err)
	}
	return table, nil
}

func (s *HTTPSource) String() string {
	return "http:" + s.URL
}
