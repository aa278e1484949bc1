package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jmespath/go-jmespath"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatWide  Format = "wide"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatTable, FormatWide, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (expected text, table, wide, json or yaml)", value)
	}
}

// Structured reports whether the format serializes objects instead of
// printing rows.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatYAML
}

func WriteObject(w io.Writer, format Format, obj any) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(obj)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, string(data))
		return err
	case FormatText, FormatTable, FormatWide:
		return fmt.Errorf("%s format requires a specific formatter", format)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// WriteQuery applies the JMESPath expression query to obj before writing it.
// An empty query writes obj unchanged.
func WriteQuery(w io.Writer, format Format, query string, obj any) error {
	if query == "" {
		return WriteObject(w, format, obj)
	}
	result, err := Query(obj, query)
	if err != nil {
		return err
	}
	return WriteObject(w, format, result)
}

// Query evaluates query against the JSON representation of obj, so field
// names match the json output.
func Query(obj any, query string) (any, error) {
	compiled, err := jmespath.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", query, err)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	result, err := compiled.Search(doc)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return result, nil
}
