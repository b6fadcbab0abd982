package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/crewdeck/crewdeck/internal/debug"
)

const (
	scannerInitialBuffer = 256 * 1024
	scannerMaxBuffer     = 2 * 1024 * 1024

	// DefaultRetryInterval is the redial delay when the server does not
	// suggest one via a retry: field.
	DefaultRetryInterval = 2 * time.Second
)

// sseTransport maintains one persistent text/event-stream connection,
// redialing automatically when it drops. It mirrors EventSource semantics:
// the consumer above it never reconnects by hand, and a failed dial is not
// surfaced as a fatal error.
type sseTransport struct {
	url   string
	hc    *http.Client
	retry time.Duration

	onConnect    func()
	onFrame      func(eventType string, data []byte)
	onDisconnect func(err error)
}

// run dials and reads until ctx is cancelled. Each dropped connection is
// reported through onDisconnect and retried after the current retry
// interval.
func (t *sseTransport) run(ctx context.Context) {
	if t.retry <= 0 {
		t.retry = DefaultRetryInterval
	}
	for {
		err := t.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		if t.onDisconnect != nil {
			t.onDisconnect(err)
		}
		debug.LogKV("sse", "connection lost, retrying", "url", t.url, "retry", t.retry, "error", err)
		select {
		case <-time.After(t.retry):
		case <-ctx.Done():
			return
		}
	}
}

// stream performs a single connection attempt and reads frames until the
// connection drops or ctx is cancelled.
func (t *sseTransport) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream endpoint returned %d", resp.StatusCode)
	}

	if t.onConnect != nil {
		t.onConnect()
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, scannerInitialBuffer), scannerMaxBuffer)

	eventType := ""
	var data [][]byte

	dispatch := func() {
		if len(data) == 0 {
			eventType = ""
			return
		}
		body := bytes.Join(data, []byte("\n"))
		typ := eventType
		if typ == "" {
			typ = "message"
		}
		eventType = ""
		data = nil
		if t.onFrame != nil {
			t.onFrame(typ, body)
		}
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		switch {
		case len(line) == 0:
			dispatch()
		case line[0] == ':':
			// Comment / keepalive.
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(trimFieldValue(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data = append(data, append([]byte(nil), trimFieldValue(line[len("data:"):])...))
		case bytes.HasPrefix(line, []byte("retry:")):
			if ms, err := strconv.Atoi(string(trimFieldValue(line[len("retry:"):]))); err == nil && ms > 0 {
				t.retry = time.Duration(ms) * time.Millisecond
			}
		default:
			// id: and unknown fields are ignored at this layer.
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}

// trimFieldValue strips the single optional space after an SSE field colon.
func trimFieldValue(v []byte) []byte {
	if len(v) > 0 && v[0] == ' ' {
		return v[1:]
	}
	return v
}
