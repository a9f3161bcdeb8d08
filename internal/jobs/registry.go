package jobs

import (
	"strconv"
	"strings"

	"github.com/0xPuncker/cronwatch/pkg/types"
)

// Registry is the ordered job list. A job's 1-based position is its only
// identity, so removing a job renumbers every job after it.
type Registry struct {
	records []*Record
}

func NewRegistry(records ...*Record) *Registry {
	return &Registry{records: records}
}

func (r *Registry) Len() int {
	return len(r.records)
}

func (r *Registry) Records() []*Record {
	return r.records
}

func (r *Registry) At(offset int) *Record {
	return r.records[offset]
}

// Append adds rec at the end and returns its 1-based index.
func (r *Registry) Append(rec *Record) int {
	r.records = append(r.records, rec)
	return len(r.records)
}

func (r *Registry) Replace(offset int, rec *Record) {
	r.records[offset] = rec
}

func (r *Registry) Remove(offset int) *Record {
	removed := r.records[offset]
	r.records = append(r.records[:offset], r.records[offset+1:]...)
	return removed
}

func (r *Registry) ContainsURL(rawURL string) bool {
	for _, rec := range r.records {
		if rec.URL == rawURL {
			return true
		}
	}
	return false
}

// ResolveIndex converts a user supplied 1-based index into a 0-based offset
// into reg. Every operation addressing a job goes through here.
func ResolveIndex(index string, reg *Registry) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(index))
	if err != nil {
		return 0, types.NewError(types.InvalidInput, "resolve_index", "index %q is not a number", index)
	}
	offset := n - 1
	if offset < 0 || offset >= reg.Len() {
		if reg.Len() == 0 {
			return 0, types.NewError(types.NotFound, "resolve_index", "no jobs configured")
		}
		return 0, types.NewError(types.NotFound, "resolve_index", "invalid index %d, use 1-%d", n, reg.Len())
	}
	return offset, nil
}
