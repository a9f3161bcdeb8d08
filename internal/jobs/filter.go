package jobs

import (
	"strings"

	"github.com/0xPuncker/cronwatch/pkg/types"
)

// ParseFilters turns command tokens into a filter list. A token of the form
// type:value becomes a selector, anything else (including URLs) a bare tag.
// An empty token list yields nil, which clears the record's filter.
func ParseFilters(tokens []string) ([]FilterSpec, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	filters := make([]FilterSpec, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			return nil, types.NewError(types.InvalidInput, "parse_filters", "empty filter token")
		}
		if strings.Contains(token, ":") && !strings.HasPrefix(token, "http") {
			typ, value, _ := strings.Cut(token, ":")
			if typ == "" {
				return nil, types.NewError(types.InvalidInput, "parse_filters", "filter %q has no type before ':'", token)
			}
			filters = append(filters, FilterSpec{Type: typ, Value: value})
			continue
		}
		filters = append(filters, FilterSpec{Tag: token})
	}
	return filters, nil
}
