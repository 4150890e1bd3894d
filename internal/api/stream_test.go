package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evlog/evlog/internal/enrich"
)

// readEvents collects data payloads off an SSE body until n events
// arrive or the deadline hits.
func readEvents(t *testing.T, body *bufio.Scanner, n int, out chan<- enrich.Entry) {
	t.Helper()
	count := 0
	for body.Scan() {
		line := body.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e enrich.Entry
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e); err != nil {
			t.Errorf("bad event payload %q: %v", line, err)
			return
		}
		out <- e
		count++
		if count == n {
			return
		}
	}
}

func TestStreamLogs_BackfillThenLive(t *testing.T) {
	env := newTestEnv(t, "")
	missed := env.insert(t, "10.0.0.1", 6, "missed while offline")

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	resp, err := http.Get(fmt.Sprintf("%s/api/logs/stream?after_id=%d", ts.URL, missed.ID-1))
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: got %q", ct)
	}

	events := make(chan enrich.Entry, 4)
	go readEvents(t, bufio.NewScanner(resp.Body), 2, events)

	// Backfilled entry arrives first.
	select {
	case e := <-events:
		if e.ID != missed.ID || e.Message != "missed while offline" {
			t.Fatalf("backfill: %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no backfill event")
	}

	// A live publish follows. Poll until the subscriber is registered;
	// subscription happens inside the handler goroutine.
	waitDeadline := time.Now().Add(5 * time.Second)
	for env.hub.SubscriberCount() == 0 && time.Now().Before(waitDeadline) {
		time.Sleep(10 * time.Millisecond)
	}
	live := env.insert(t, "10.0.0.2", 3, "live entry")
	var e enrich.Entry
	e.Entry = live
	env.hub.Publish(e)

	select {
	case got := <-events:
		if got.ID != live.ID || got.Message != "live entry" {
			t.Fatalf("live: %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no live event")
	}
}
