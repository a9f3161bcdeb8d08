package cron

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// Table is the scheduler's backing store. Implementations read and write the
// whole table at once.
type Table interface {
	Read(ctx context.Context) (*Crontab, error)
	Write(ctx context.Context, tab *Crontab) error
}

// SystemTable edits a user crontab through the crontab binary.
type SystemTable struct {
	Binary string
	User   string
}

func NewSystemTable(binary, user string) *SystemTable {
	if binary == "" {
		binary = "crontab"
	}
	return &SystemTable{Binary: binary, User: user}
}

func (t *SystemTable) args(extra ...string) []string {
	var args []string
	if t.User != "" {
		args = append(args, "-u", t.User)
	}
	return append(args, extra...)
}

func (t *SystemTable) Read(ctx context.Context) (*Crontab, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Binary, t.args("-l")...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), "no crontab for") {
			return &Crontab{}, nil
		}
		return nil, fmt.Errorf("failed to read crontab: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return ParseCrontab(stdout.Bytes()), nil
}

func (t *SystemTable) Write(ctx context.Context, tab *Crontab) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Binary, t.args("-")...)
	cmd.Stdin = bytes.NewReader(tab.Bytes())
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to install crontab: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// FileTable keeps the table in a plain file. With an empty User the file
// uses the per-user crontab format; with a User it is a cron.d style table
// whose entries carry a user column, and new entries run as User.
type FileTable struct {
	Path string
	User string
}

func NewFileTable(path, user string) *FileTable {
	return &FileTable{Path: path, User: user}
}

func (t *FileTable) parse(data []byte) *Crontab {
	if t.User != "" {
		return ParseSystemCrontab(data, t.User)
	}
	return ParseCrontab(data)
}

func (t *FileTable) Read(ctx context.Context) (*Crontab, error) {
	data, err := os.ReadFile(t.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return t.parse(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read crontab file: %w", err)
	}
	return t.parse(data), nil
}

func (t *FileTable) Write(ctx context.Context, tab *Crontab) error {
	if err := os.MkdirAll(filepath.Dir(t.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create crontab directory: %w", err)
	}
	if err := renameio.WriteFile(t.Path, tab.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write crontab file: %w", err)
	}
	return nil
}
