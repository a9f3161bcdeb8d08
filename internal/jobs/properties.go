package jobs

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Properties is an insertion-ordered string-keyed mapping. Nested mappings
// are stored as *Properties so key order survives a load/save cycle.
type Properties struct {
	keys   []string
	values map[string]interface{}
}

func NewProperties() *Properties {
	return &Properties{values: make(map[string]interface{})}
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

func (p *Properties) Get(key string) (interface{}, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

func (p *Properties) Set(key string, value interface{}) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p *Properties) Delete(key string) {
	if _, exists := p.values[key]; !exists {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy; nested mappings and lists are copied too.
func (p *Properties) Clone() *Properties {
	out := NewProperties()
	if p == nil {
		return out
	}
	for _, k := range p.keys {
		out.Set(k, cloneValue(p.values[k]))
	}
	return out
}

// ToMap converts to plain maps, recursively. Key order is lost.
func (p *Properties) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, p.Len())
	if p == nil {
		return out
	}
	for _, k := range p.keys {
		out[k] = plainValue(p.values[k])
	}
	return out
}

func (p *Properties) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if p == nil {
		return node, nil
	}
	for _, k := range p.keys {
		value, err := encodeValue(p.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode property %s: %w", k, err)
		}
		node.Content = append(node.Content, stringNode(k), value)
	}
	return node, nil
}

// encodeValue is yaml.Node.Encode except that floats keep a decimal point,
// so 1.0 is written as 1.0 and not read back as an int.
func encodeValue(v interface{}) (*yaml.Node, error) {
	switch t := v.(type) {
	case *Properties:
		node, err := t.MarshalYAML()
		if err != nil {
			return nil, err
		}
		return node.(*yaml.Node), nil
	case []interface{}:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			child, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, child)
		}
		return seq, nil
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			text := strconv.FormatFloat(t, 'f', -1, 64)
			if !strings.ContainsRune(text, '.') {
				text += ".0"
			}
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}, nil
		}
	}

	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	return &node, nil
}

func (p *Properties) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToMap())
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *Properties:
		return t.Clone()
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func plainValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *Properties:
		return t.ToMap()
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

// decodeValue turns a YAML node into Go values, keeping mappings ordered.
func decodeValue(node *yaml.Node) (interface{}, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return decodeValue(node.Alias)
	case yaml.MappingNode:
		props := NewProperties()
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := decodeValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			props.Set(node.Content[i].Value, value)
		}
		return props, nil
	case yaml.SequenceNode:
		items := make([]interface{}, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := decodeValue(child)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return items, nil
	default:
		var value interface{}
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return value, nil
	}
}

func stringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
