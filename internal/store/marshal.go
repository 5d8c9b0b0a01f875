package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
)

// marshalDecision converts a decision to JSON TEXT for the record column.
// HTML escaping is disabled so stored records stay readable.
func marshalDecision(d decision.Decision) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return "", fmt.Errorf("marshal decision: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalDecision parses a record column.
func unmarshalDecision(data []byte) (decision.Decision, error) {
	var d decision.Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return decision.Decision{}, fmt.Errorf("unmarshal decision: %w", err)
	}
	return d, nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
