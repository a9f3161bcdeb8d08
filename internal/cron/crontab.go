package cron

import (
	"bytes"
	"strings"
)

// Entry is one job line of a crontab: a schedule (five fields or an @
// descriptor), the user column of system tables, the command, and an
// optional trailing "# comment".
type Entry struct {
	Schedule string
	User     string
	Command  string
	Comment  string

	ref *line
}

func (e Entry) String() string {
	s := e.Schedule
	if e.User != "" {
		s += " " + e.User
	}
	s += " " + e.Command
	if e.Comment != "" {
		s += " # " + e.Comment
	}
	return s
}

type line struct {
	raw   string
	entry *Entry
}

// Crontab is a parsed crontab. Lines that are not touched through Replace or
// Remove are rendered back exactly as they were read.
type Crontab struct {
	lines []*line
	// user is set for system tables (/etc/crontab, cron.d), whose entries
	// carry a user column. New entries run as this user.
	user string
}

// ParseCrontab parses a per-user crontab as printed by `crontab -l`.
func ParseCrontab(data []byte) *Crontab {
	return parseCrontab(data, "")
}

// ParseSystemCrontab parses a cron.d style table. Entries added to it run as
// user, which must not be empty.
func ParseSystemCrontab(data []byte, user string) *Crontab {
	return parseCrontab(data, user)
}

func parseCrontab(data []byte, user string) *Crontab {
	tab := &Crontab{user: user}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return tab
	}

	for _, raw := range strings.Split(text, "\n") {
		l := &line{raw: raw}
		if entry, ok := parseEntry(raw, user != ""); ok {
			entry.ref = l
			l.entry = &entry
		}
		tab.lines = append(tab.lines, l)
	}
	return tab
}

// Entries returns the job lines in table order.
func (c *Crontab) Entries() []Entry {
	var entries []Entry
	for _, l := range c.lines {
		if l.entry != nil {
			entries = append(entries, *l.entry)
		}
	}
	return entries
}

func (c *Crontab) Append(e Entry) {
	if c.user != "" && e.User == "" {
		e.User = c.user
	}
	l := &line{}
	e.ref = l
	l.entry = &e
	c.lines = append(c.lines, l)
}

// Replace overwrites the line old was read from. It reports false when old
// does not belong to this table. In system tables an updated entry without a
// user keeps the user of the line it replaces.
func (c *Crontab) Replace(old, updated Entry) bool {
	for _, l := range c.lines {
		if l == old.ref && l != nil {
			if c.user != "" && updated.User == "" {
				updated.User = old.User
				if updated.User == "" {
					updated.User = c.user
				}
			}
			updated.ref = l
			l.entry = &updated
			l.raw = ""
			return true
		}
	}
	return false
}

func (c *Crontab) Remove(old Entry) bool {
	for i, l := range c.lines {
		if l == old.ref && l != nil {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Crontab) Bytes() []byte {
	var buf bytes.Buffer
	for _, l := range c.lines {
		if l.raw != "" || l.entry == nil {
			buf.WriteString(l.raw)
		} else {
			buf.WriteString(l.entry.String())
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// parseEntry recognizes job lines. Blank lines, comments (including
// commented-out jobs) and NAME=value settings are not entries. withUser
// expects a user column after the schedule.
func parseEntry(raw string, withUser bool) (Entry, bool) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.HasPrefix(text, "#") || isEnvLine(text) {
		return Entry{}, false
	}

	scheduleFields := 5
	if strings.HasPrefix(text, "@") {
		scheduleFields = 1
	}
	n := scheduleFields
	if withUser {
		n++
	}
	fields, rest, ok := splitFields(text, n)
	if !ok {
		return Entry{}, false
	}
	schedule := strings.Join(fields[:scheduleFields], " ")
	var user string
	if withUser {
		user = fields[scheduleFields]
	}

	command, comment := rest, ""
	if i := strings.LastIndex(rest, " #"); i >= 0 {
		command = strings.TrimSpace(rest[:i])
		comment = strings.TrimSpace(rest[i+2:])
	}
	if command == "" {
		return Entry{}, false
	}
	return Entry{Schedule: schedule, User: user, Command: command, Comment: comment}, true
}

// splitFields cuts n whitespace separated fields off the front of s and
// returns them with the remainder, which must be non-empty.
func splitFields(s string, n int) ([]string, string, bool) {
	fields := make([]string, 0, n)
	rest := s
	for len(fields) < n {
		rest = strings.TrimLeft(rest, " \t")
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			return nil, "", false
		}
		fields = append(fields, rest[:end])
		rest = rest[end:]
	}
	rest = strings.TrimSpace(rest)
	return fields, rest, rest != ""
}

func isEnvLine(text string) bool {
	name, _, ok := strings.Cut(text, "=")
	if !ok {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
