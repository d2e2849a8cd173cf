package monitor

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/go-go-golems/trainmon/pkg/sse"
	"github.com/pkg/errors"
)

// Transport opens one event stream. The stream must stop blocking in Next once ctx is canceled.
type Transport interface {
	Open(ctx context.Context) (Stream, error)
}

type Stream interface {
	Next() (sse.Event, error)
	Close() error
}

// HTTPTransport opens a text/event-stream GET against URL. The last event id seen on any
// stream it opened is sent back as Last-Event-ID on the next Open.
type HTTPTransport struct {
	URL    string
	Client *http.Client

	mu          sync.Mutex
	lastEventID string
}

func NewHTTPTransport(url string, client *http.Client) *HTTPTransport {
	if client == nil {
		// No timeout: the response body stays open for the whole session.
		client = &http.Client{}
	}
	return &HTTPTransport{URL: url, Client: client}
}

func (t *HTTPTransport) Open(ctx context.Context) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create stream request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if id := t.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "connect stream")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, errors.Errorf("stream: server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/event-stream" {
		_ = resp.Body.Close()
		return nil, errors.Errorf("stream: unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	return &httpStream{body: resp.Body, reader: sse.NewReader(resp.Body), transport: t}, nil
}

func (t *HTTPTransport) LastEventID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastEventID
}

func (t *HTTPTransport) setLastEventID(id string) {
	t.mu.Lock()
	t.lastEventID = id
	t.mu.Unlock()
}

type httpStream struct {
	body      io.ReadCloser
	reader    *sse.Reader
	transport *HTTPTransport
	closeOnce sync.Once
	closeErr  error
}

func (s *httpStream) Next() (sse.Event, error) {
	ev, err := s.reader.Next()
	if err == nil {
		if id := s.reader.LastEventID(); id != "" {
			s.transport.setLastEventID(id)
		}
	}
	return ev, err
}

func (s *httpStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
