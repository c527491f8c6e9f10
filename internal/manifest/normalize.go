package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/malegalny/Brain/internal/model"
)

const (
	defaultTitle = "Untitled"
	defaultRole  = "unknown"
)

// Message is one normalized turn.
type Message struct {
	Role      string
	Text      string
	CreatedAt *time.Time
}

// Conversation is one normalized manifest record with its messages in
// persistence order.
type Conversation struct {
	ExternalID string
	Title      string
	Date       *time.Time
	Raw        string
	Messages   []Message
}

// Blob returns the title followed by every non-empty message text, one per
// line. Categorization reads it.
func (c Conversation) Blob() string {
	parts := []string{c.Title}
	for _, m := range c.Messages {
		if m.Text != "" {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type rawConversation struct {
	ID         json.RawMessage `json:"id"`
	Title      json.RawMessage `json:"title"`
	CreateTime Epoch           `json:"create_time"`
	Mapping    json.RawMessage `json:"mapping"`
}

type rawNode struct {
	Message json.RawMessage `json:"message"`
}

type rawMessage struct {
	Author     json.RawMessage `json:"author"`
	CreateTime Epoch           `json:"create_time"`
	Content    json.RawMessage `json:"content"`
}

type rawAuthor struct {
	Role json.RawMessage `json:"role"`
}

type rawContent struct {
	Parts []json.RawMessage `json:"parts"`
}

// Normalize flattens one record's mapping tree into time-ordered messages.
// Structural problems (a node or message that is not an object) are
// rejected; optional fields of the wrong shape fall back to defaults.
func Normalize(rec Record) (Conversation, error) {
	var rc rawConversation
	if err := json.Unmarshal(rec, &rc); err != nil {
		return Conversation{}, fmt.Errorf("%w: decode record: %v", model.ErrManifest, err)
	}

	conv := Conversation{
		Title: defaultTitle,
		Date:  rc.CreateTime.Time(),
		Raw:   string(rec),
	}
	if id, ok := scalarText(rc.ID); ok {
		conv.ExternalID = id
	}
	if title, ok := scalarText(rc.Title); ok && title != "" {
		conv.Title = title
	}

	msgs, err := collectMessages(rc.Mapping)
	if err != nil {
		return Conversation{}, err
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreateTime.SortKey() < msgs[j].CreateTime.SortKey()
	})

	conv.Messages = make([]Message, 0, len(msgs))
	for _, m := range msgs {
		conv.Messages = append(conv.Messages, Message{
			Role:      roleOf(m.Author),
			Text:      textOf(m.Content),
			CreatedAt: m.CreateTime.Time(),
		})
	}
	return conv, nil
}

// collectMessages walks the mapping object in document order and returns
// every non-empty message payload.
func collectMessages(mapping json.RawMessage) ([]rawMessage, error) {
	if isEmpty(mapping) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(mapping))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: decode mapping: %v", model.ErrManifest, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: mapping must be an object", model.ErrManifest)
	}

	var out []rawMessage
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: decode mapping: %v", model.ErrManifest, err)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: node %v: %v", model.ErrManifest, key, err)
		}
		if isEmpty(raw) {
			continue
		}
		var node rawNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, fmt.Errorf("%w: node %v: %v", model.ErrManifest, key, err)
		}
		if isEmpty(node.Message) {
			continue
		}

		var m rawMessage
		if err := json.Unmarshal(node.Message, &m); err != nil {
			return nil, fmt.Errorf("%w: node %v message: %v", model.ErrManifest, key, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// isEmpty reports whether a raw value is missing or a JSON falsy value:
// null, false, zero, "", [] or {}. Such mappings, nodes and messages carry
// nothing and are skipped.
func isEmpty(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return true
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

func roleOf(author json.RawMessage) string {
	var a rawAuthor
	if err := json.Unmarshal(author, &a); err != nil {
		return defaultRole
	}
	if role, ok := scalarText(a.Role); ok && role != "" {
		return role
	}
	return defaultRole
}

// textOf joins the non-null content parts with newlines. String parts
// contribute their value; any other part contributes its JSON text.
func textOf(content json.RawMessage) string {
	var c rawContent
	if err := json.Unmarshal(content, &c); err != nil {
		return ""
	}

	var parts []string
	for _, p := range c.Parts {
		p = bytes.TrimSpace(p)
		if len(p) == 0 || bytes.Equal(p, []byte("null")) {
			continue
		}
		var s string
		if p[0] == '"' && json.Unmarshal(p, &s) == nil {
			parts = append(parts, s)
			continue
		}
		var buf bytes.Buffer
		if json.Compact(&buf, p) == nil {
			parts = append(parts, buf.String())
		} else {
			parts = append(parts, string(p))
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// scalarText renders a JSON string or number as text.
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
	return "", false
}
