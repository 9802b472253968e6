// Package loki pushes relayed envmonitor events to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"envmonitor/console/internal/telemetry"
)

// ErrNoBaseURL is returned when no Loki URL is configured.
var ErrNoBaseURL = errors.New("loki: base URL is empty")

const (
	pushPath = "/loki/api/v1/push"
	jobLabel = "envmonitor"
)

// PushRequest is the body of the v1 push API.
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is one label set and its [timestamp_ns, line] entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

var invalidLabelChars = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Level maps an event kind to the level label used for Grafana filtering.
func Level(kind string) string {
	switch kind {
	case telemetry.KindCriticalAlert:
		return "critical"
	case telemetry.KindAlertReceived, telemetry.KindSessionExpired:
		return "warning"
	default:
		return "info"
	}
}

// PushEventJSON pushes one Kafka message value. A telemetry event gets kind, source and level
// labels and keeps its own timestamp; anything else is pushed as-is at the current time.
func PushEventJSON(ctx context.Context, baseURL string, raw []byte) error {
	labels := map[string]string{}
	ts := time.Now().UTC()
	var ev telemetry.Event
	if err := json.Unmarshal(raw, &ev); err == nil && ev.Kind != "" {
		labels["kind"] = ev.Kind
		labels["level"] = Level(ev.Kind)
		if ev.Source != "" {
			labels["source"] = ev.Source
		}
		if !ev.CreatedAt.IsZero() {
			ts = ev.CreatedAt
		}
	}
	return PushEvent(ctx, baseURL, ts, string(raw), labels)
}

// PushEvent sends a single line under job=envmonitor plus labels. Label values are sanitized
// and blank ones dropped. A non-2xx response is an error.
func PushEvent(ctx context.Context, baseURL string, ts time.Time, line string, labels map[string]string) error {
	if baseURL == "" {
		return ErrNoBaseURL
	}
	stream := map[string]string{"job": jobLabel}
	for k, v := range labels {
		if v = invalidLabelChars.ReplaceAllString(strings.TrimSpace(v), "_"); v != "" {
			stream[k] = v
		}
	}
	payload, err := json.Marshal(PushRequest{Streams: []Stream{{
		Stream: stream,
		Values: [][]string{{strconv.FormatInt(ts.UnixNano(), 10), line}},
	}}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(baseURL, "/")+pushPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("loki: push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
