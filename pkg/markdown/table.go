// Package markdown renders command outputs as markdown tables in the layout
// the automation host displays in its war room.
package markdown

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const noEntries = "**No entries.**\n"

// Option configures Table.
type Option func(*tableOpts)

type tableOpts struct {
	headers    []string
	removeNull bool
}

// WithHeaders fixes the column order. Columns not listed are not rendered.
func WithHeaders(headers ...string) Option {
	return func(o *tableOpts) {
		o.headers = headers
	}
}

// RemoveNull drops columns whose value is empty in every row.
func RemoveNull() Option {
	return func(o *tableOpts) {
		o.removeNull = true
	}
}

// Table renders rows under a "### title" heading. rows may be a map, a slice
// of maps, or anything that marshals to either; a failure to convert is
// rendered as no entries.
func Table(title string, rows any, opts ...Option) string {
	o := tableOpts{}
	for _, opt := range opts {
		opt(&o)
	}

	var b strings.Builder
	if title != "" {
		b.WriteString("### ")
		b.WriteString(title)
		b.WriteString("\n")
	}

	data, err := Rows(rows)
	if err != nil || len(data) == 0 {
		b.WriteString(noEntries)
		return b.String()
	}

	headers := o.headers
	if len(headers) == 0 {
		headers = sortedKeys(data)
	}
	if o.removeNull {
		headers = nonEmptyColumns(headers, data)
	}
	if len(headers) == 0 {
		b.WriteString(noEntries)
		return b.String()
	}

	b.WriteString("|")
	for _, h := range headers {
		b.WriteString(escape(h))
		b.WriteString("|")
	}
	b.WriteString("\n|")
	for range headers {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, row := range data {
		b.WriteString("|")
		for _, h := range headers {
			b.WriteString(" ")
			b.WriteString(escape(Cell(row[h])))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Rows normalises v into a slice of maps.
func Rows(v any) ([]map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return []map[string]any{t}, nil
	case []map[string]any:
		return t, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && raw[0] == '{' {
		var one map[string]any
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, err
		}
		return []map[string]any{one}, nil
	}
	var many []map[string]any
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("markdown: rows must be objects: %w", err)
	}
	return many, nil
}

// Cell renders one value: lists are comma joined and objects become JSON.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, Cell(e))
		}
		return strings.Join(parts, ", ")
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", "<br>")
}

func sortedKeys(rows []map[string]any) []string {
	seen := map[string]struct{}{}
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonEmptyColumns(headers []string, rows []map[string]any) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		for _, r := range rows {
			if Cell(r[h]) != "" {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

// Image wraps url as an inline markdown image.
func Image(url string) string {
	if url == "" {
		return ""
	}
	return fmt.Sprintf("![%s](%s)", url, url)
}
