package jobs

import (
	"testing"

	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		expected []FilterSpec
	}{
		{
			name:     "no tokens clears",
			tokens:   nil,
			expected: nil,
		},
		{
			name:   "bare tags",
			tokens: []string{"html2text", "strip"},
			expected: []FilterSpec{
				{Tag: "html2text"},
				{Tag: "strip"},
			},
		},
		{
			name:   "selectors split on first colon",
			tokens: []string{`xpath://*[@id="price"]`, "css:div.a:first-child", "element-by-id:ProductPrice"},
			expected: []FilterSpec{
				{Type: "xpath", Value: `//*[@id="price"]`},
				{Type: "css", Value: "div.a:first-child"},
				{Type: "element-by-id", Value: "ProductPrice"},
			},
		},
		{
			name:   "unknown types accepted",
			tokens: []string{"re.sub:\\d+", "shellpipe:sort"},
			expected: []FilterSpec{
				{Type: "re.sub", Value: "\\d+"},
				{Type: "shellpipe", Value: "sort"},
			},
		},
		{
			name:   "urls stay bare",
			tokens: []string{"https://example.com/a", "http://example.com"},
			expected: []FilterSpec{
				{Tag: "https://example.com/a"},
				{Tag: "http://example.com"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilters(tt.tokens)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFiltersRejectsEmptyType(t *testing.T) {
	_, err := ParseFilters([]string{"html2text", ":value"})
	assert.True(t, types.IsKind(err, types.InvalidInput))

	_, err = ParseFilters([]string{"html2text", ""})
	assert.True(t, types.IsKind(err, types.InvalidInput))
}

func TestParsePropertiesCoercion(t *testing.T) {
	props, err := ParseProperties([]string{
		"timeout:30",
		"ignore_connection_errors:TRUE",
		"enabled:false",
		"ratio:1.5",
		"half:.5",
		"trailing:5.",
		"version:1.2.3",
		"user_agent:MyBot",
		"negative:-5",
		"url_like:http://a:b",
		"empty:",
	})
	require.NoError(t, err)

	got := map[string]interface{}{}
	for _, p := range props {
		assert.Empty(t, p.SubKey)
		got[p.Key] = p.Value
	}

	assert.Equal(t, map[string]interface{}{
		"timeout":                  30,
		"ignore_connection_errors": true,
		"enabled":                  false,
		"ratio":                    1.5,
		"half":                     0.5,
		"trailing":                 5.0,
		"version":                  "1.2.3",
		"user_agent":               "MyBot",
		"negative":                 "-5",
		"url_like":                 "http://a:b",
		"empty":                    "",
	}, got)
}

func TestParsePropertiesNestedKeepsString(t *testing.T) {
	props, err := ParseProperties([]string{"headers.Accept:text/html", "headers.X-Count:5"})
	require.NoError(t, err)
	require.Len(t, props, 2)

	assert.Equal(t, Property{Key: "headers", SubKey: "Accept", Value: "text/html"}, props[0])
	assert.Equal(t, Property{Key: "headers", SubKey: "X-Count", Value: "5"}, props[1])
	assert.Equal(t, "headers.X-Count", props[1].Path())
}

func TestParsePropertiesRejects(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
	}{
		{name: "missing colon", tokens: []string{"timeout:30", "timeout"}},
		{name: "empty key", tokens: []string{":30"}},
		{name: "empty nested key", tokens: []string{"headers.:x"}},
		{name: "empty main key", tokens: []string{".Accept:x"}},
		{name: "reserved name", tokens: []string{"name:renamed"}},
		{name: "reserved url", tokens: []string{"url:https://x.example"}},
		{name: "reserved nested filter", tokens: []string{"filter.a:b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := ParseProperties(tt.tokens)
			assert.Nil(t, props)
			assert.True(t, types.IsKind(err, types.InvalidInput))
		})
	}
}

func TestApplyPropertiesMergesNested(t *testing.T) {
	rec := NewRecord("https://a.example", "A")
	headers := NewProperties()
	headers.Set("Accept", "text/html")
	rec.Extra.Set("headers", headers)

	props, err := ParseProperties([]string{"headers.User-Agent:bot", "timeout:10"})
	require.NoError(t, err)
	require.NoError(t, rec.ApplyProperties(props))

	assert.Equal(t, map[string]interface{}{
		"headers": map[string]interface{}{"Accept": "text/html", "User-Agent": "bot"},
		"timeout": 10,
	}, rec.Extra.ToMap())
}

func TestApplyPropertiesIsIdempotent(t *testing.T) {
	rec := NewRecord("https://a.example", "A")
	props, err := ParseProperties([]string{"timeout:30"})
	require.NoError(t, err)

	require.NoError(t, rec.ApplyProperties(props))
	once := rec.Extra.ToMap()
	require.NoError(t, rec.ApplyProperties(props))

	assert.Equal(t, once, rec.Extra.ToMap())
	assert.Equal(t, []string{"timeout"}, rec.Extra.Keys())
}

func TestApplyPropertiesPlainOverwritesNested(t *testing.T) {
	rec := NewRecord("https://a.example", "A")
	headers := NewProperties()
	headers.Set("Accept", "text/html")
	rec.Extra.Set("headers", headers)

	props, err := ParseProperties([]string{"headers:none"})
	require.NoError(t, err)
	require.NoError(t, rec.ApplyProperties(props))

	value, _ := rec.Extra.Get("headers")
	assert.Equal(t, "none", value)
}

func TestApplyPropertiesNestedOverScalarIsAtomic(t *testing.T) {
	rec := NewRecord("https://a.example", "A")
	rec.Extra.Set("headers", "plain")

	props, err := ParseProperties([]string{"timeout:5", "headers.Accept:text/html"})
	require.NoError(t, err)

	err = rec.ApplyProperties(props)
	assert.True(t, types.IsKind(err, types.InvalidInput))
	assert.Equal(t, map[string]interface{}{"headers": "plain"}, rec.Extra.ToMap())
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://example.com", true},
		{"http://example.com/path?q=1", true},
		{"ftp://example.com", false},
		{"https://", false},
		{"example.com", false},
		{"not a url", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateURL(tt.url))
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com", NormalizeURL("example.com"))
	assert.Equal(t, "http://example.com", NormalizeURL("http://example.com"))
	assert.Equal(t, "ftp://example.com", NormalizeURL("ftp://example.com"))
	assert.Equal(t, "not a url", NormalizeURL("not a url"))
}
