package jobs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	keyName   = "name"
	keyURL    = "url"
	keyFilter = "filter"
)

// FilterSpec is one filter step: either a bare tag such as "html2text" or a
// single-key selector such as {xpath: //div}. Raw holds mappings read from
// disk that do not fit either shape.
type FilterSpec struct {
	Tag   string
	Type  string
	Value interface{}
	Raw   *Properties
}

func (f FilterSpec) IsTag() bool {
	return f.Type == "" && f.Raw == nil
}

func (f FilterSpec) String() string {
	switch {
	case f.Raw != nil:
		return fmt.Sprintf("%v", f.Raw.ToMap())
	case f.Type != "":
		return fmt.Sprintf("%s:%v", f.Type, plainValue(f.Value))
	default:
		return f.Tag
	}
}

func (f FilterSpec) MarshalYAML() (interface{}, error) {
	switch {
	case f.Raw != nil:
		return f.Raw, nil
	case f.Type != "":
		props := NewProperties()
		props.Set(f.Type, f.Value)
		return props, nil
	default:
		return f.Tag, nil
	}
}

func (f FilterSpec) MarshalJSON() ([]byte, error) {
	switch {
	case f.Raw != nil:
		return json.Marshal(f.Raw.ToMap())
	case f.Type != "":
		return json.Marshal(map[string]interface{}{f.Type: plainValue(f.Value)})
	default:
		return json.Marshal(f.Tag)
	}
}

// Record is one watch job as stored in the urlwatch jobs file.
type Record struct {
	Name   string
	URL    string
	Filter []FilterSpec
	Extra  *Properties

	// scalarFilter remembers a filter written as a plain string on disk.
	scalarFilter bool
}

func NewRecord(rawURL, name string) *Record {
	return &Record{Name: name, URL: rawURL, Extra: NewProperties()}
}

// DisplayName falls back to the URL when no name is set.
func (r *Record) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.URL != "" {
		return r.URL
	}
	return "Unnamed entry"
}

func (r *Record) SetFilter(filters []FilterSpec) {
	r.Filter = filters
	r.scalarFilter = false
}

func (r *Record) Clone() *Record {
	out := &Record{
		Name:         r.Name,
		URL:          r.URL,
		Extra:        r.Extra.Clone(),
		scalarFilter: r.scalarFilter,
	}
	if r.Filter != nil {
		out.Filter = make([]FilterSpec, len(r.Filter))
		for i, f := range r.Filter {
			out.Filter[i] = FilterSpec{Tag: f.Tag, Type: f.Type, Value: cloneValue(f.Value)}
			if f.Raw != nil {
				out.Filter[i].Raw = f.Raw.Clone()
			}
		}
	}
	return out
}

func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: job entry must be a mapping", node.Line)
	}

	r.Extra = NewProperties()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		switch key {
		case keyName:
			if err := value.Decode(&r.Name); err != nil {
				return fmt.Errorf("line %d: invalid name: %w", value.Line, err)
			}
		case keyURL:
			if err := value.Decode(&r.URL); err != nil {
				return fmt.Errorf("line %d: invalid url: %w", value.Line, err)
			}
		case keyFilter:
			if err := r.decodeFilter(value); err != nil {
				return err
			}
		default:
			decoded, err := decodeValue(value)
			if err != nil {
				return err
			}
			r.Extra.Set(key, decoded)
		}
	}
	return nil
}

func (r *Record) decodeFilter(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			return nil
		}
		r.Filter = []FilterSpec{{Tag: node.Value}}
		r.scalarFilter = true
		return nil
	case yaml.SequenceNode:
		r.Filter = make([]FilterSpec, 0, len(node.Content))
		for _, item := range node.Content {
			spec, err := decodeFilterSpec(item)
			if err != nil {
				return err
			}
			r.Filter = append(r.Filter, spec)
		}
		return nil
	default:
		return fmt.Errorf("line %d: filter must be a string or a list", node.Line)
	}
}

func decodeFilterSpec(node *yaml.Node) (FilterSpec, error) {
	value, err := decodeValue(node)
	if err != nil {
		return FilterSpec{}, err
	}
	switch v := value.(type) {
	case *Properties:
		if v.Len() == 1 {
			key := v.Keys()[0]
			inner, _ := v.Get(key)
			return FilterSpec{Type: key, Value: inner}, nil
		}
		return FilterSpec{Raw: v}, nil
	case string:
		return FilterSpec{Tag: v}, nil
	default:
		return FilterSpec{}, fmt.Errorf("line %d: unsupported filter value %v", node.Line, v)
	}
}

func (r *Record) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	if r.Name != "" {
		node.Content = append(node.Content, stringNode(keyName), stringNode(r.Name))
	}
	if r.URL != "" {
		node.Content = append(node.Content, stringNode(keyURL), stringNode(r.URL))
	}
	if len(r.Filter) > 0 {
		var filter yaml.Node
		if r.scalarFilter && len(r.Filter) == 1 && r.Filter[0].IsTag() {
			filter = *stringNode(r.Filter[0].Tag)
		} else if err := filter.Encode(r.Filter); err != nil {
			return nil, fmt.Errorf("failed to encode filter: %w", err)
		}
		node.Content = append(node.Content, stringNode(keyFilter), &filter)
	}

	extra, err := r.Extra.MarshalYAML()
	if err != nil {
		return nil, err
	}
	node.Content = append(node.Content, extra.(*yaml.Node).Content...)
	return node, nil
}

// ValidateURL accepts only http(s) URLs with a host.
func ValidateURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NormalizeURL prefixes https:// onto a schemeless URL when that makes it valid.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		return raw
	}
	if candidate := "https://" + raw; ValidateURL(candidate) {
		return candidate
	}
	return raw
}
