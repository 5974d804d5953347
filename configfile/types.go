package configfile

import (
	"fmt"
	"time"

	"github.com/ideamans/go-sheetsync"
	"gopkg.in/yaml.v3"
)

// FieldList is a list of field or header names. It accepts either a list or
// the single word "all".
type FieldList []string

// UnmarshalYAML implements custom YAML unmarshaling for FieldList.
func (l *FieldList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string
		if err := node.Decode(&str); err != nil {
			return err
		}
		return l.fromString(str)

	case yaml.SequenceNode:
		var arr []string
		if err := node.Decode(&arr); err != nil {
			return err
		}
		*l = FieldList(arr)
		return nil

	default:
		return fmt.Errorf("line %d: expected %q or a list of fields", node.Line, sheetsync.AllFields)
	}
}

// UnmarshalTOML implements toml.Unmarshaler for FieldList.
func (l *FieldList) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		return l.fromString(v)
	case []interface{}:
		arr := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("field names must be strings, got %T", item)
			}
			arr = append(arr, s)
		}
		*l = FieldList(arr)
		return nil
	default:
		return fmt.Errorf("expected %q or a list of fields, got %T", sheetsync.AllFields, data)
	}
}

func (l *FieldList) fromString(s string) error {
	switch s {
	case "":
		*l = FieldList{}
	case sheetsync.AllFields:
		*l = FieldList{sheetsync.AllFields}
	default:
		return fmt.Errorf("expected %q or a list of fields, got %q", sheetsync.AllFields, s)
	}
	return nil
}

// Duration is a time.Duration written as "30s", "5m", ...
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler (used by TOML).
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements custom YAML unmarshaling for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a duration", node.Line)
	}
	return d.UnmarshalText([]byte(node.Value))
}

// String returns the duration in time.Duration notation
func (d Duration) String() string {
	return time.Duration(d).String()
}
