package jobs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xPuncker/cronwatch/internal/testutil"
	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "urlwatch", "urls.yaml"), testutil.NewLogger())
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	reg := store.Load()
	assert.Equal(t, 0, reg.Len())
}

func TestStoreLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "urls.yaml", "name: broken\nurl: [unclosed\n")

	store := NewStore(path, testutil.NewLogger())
	reg := store.Load()

	assert.NotNil(t, reg)
	assert.Equal(t, 0, reg.Len())
}

func TestStoreLoadNonMappingDocument(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "urls.yaml", "url: https://a.example\n---\n- just\n- a list\n")

	reg := NewStore(path, testutil.NewLogger()).Load()
	assert.Equal(t, 0, reg.Len())
}

func TestStoreLoadDropsEmptyDocuments(t *testing.T) {
	dir := t.TempDir()
	content := "---\n---\nname: First\nurl: https://a.example\n---\n{}\n---\nnull\n---\nurl: https://b.example\n"
	path := testutil.WriteFile(t, dir, "urls.yaml", content)

	reg := NewStore(path, testutil.NewLogger()).Load()
	require.Equal(t, 2, reg.Len())
	assert.Equal(t, "First", reg.At(0).Name)
	assert.Equal(t, "https://b.example", reg.At(1).URL)
	assert.Equal(t, "https://b.example", reg.At(1).DisplayName())
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	headers := NewProperties()
	headers.Set("Accept", "text/html")
	headers.Set("X-Token", "abc")

	first := NewRecord("https://a.example", "First")
	first.SetFilter([]FilterSpec{
		{Type: "xpath", Value: `//*[@id="price"]`},
		{Tag: "html2text"},
		{Tag: "strip"},
	})
	first.Extra.Set("timeout", 30)
	first.Extra.Set("headers", headers)
	first.Extra.Set("ignore_connection_errors", true)
	first.Extra.Set("ratio", 1.5)
	first.Extra.Set("user_agent", "true-ish")

	second := NewRecord("https://b.example/path?q=1", "Second")
	second.Extra.Set("encoding", "utf-8")

	reg := NewRegistry(first)
	require.NoError(t, store.Save(reg))

	// Appending to a saved registry and saving again must preserve the first record.
	reloaded := store.Load()
	reloaded.Append(second)
	require.NoError(t, store.Save(reloaded))

	got := store.Load()
	require.Equal(t, 2, got.Len())

	rec := got.At(0)
	assert.Equal(t, "First", rec.Name)
	assert.Equal(t, "https://a.example", rec.URL)
	require.Len(t, rec.Filter, 3)
	assert.Equal(t, "xpath", rec.Filter[0].Type)
	assert.Equal(t, `//*[@id="price"]`, rec.Filter[0].Value)
	assert.True(t, rec.Filter[1].IsTag())
	assert.Equal(t, "html2text", rec.Filter[1].Tag)
	assert.Equal(t, "strip", rec.Filter[2].Tag)

	assert.Equal(t, []string{"timeout", "headers", "ignore_connection_errors", "ratio", "user_agent"}, rec.Extra.Keys())
	assert.Equal(t, map[string]interface{}{
		"timeout":                  30,
		"headers":                  map[string]interface{}{"Accept": "text/html", "X-Token": "abc"},
		"ignore_connection_errors": true,
		"ratio":                    1.5,
		"user_agent":               "true-ish",
	}, rec.Extra.ToMap())

	nested, _ := rec.Extra.Get("headers")
	assert.Equal(t, []string{"Accept", "X-Token"}, nested.(*Properties).Keys())

	assert.Equal(t, "Second", got.At(1).Name)
	assert.Equal(t, "https://b.example/path?q=1", got.At(1).URL)
	assert.Equal(t, map[string]interface{}{"encoding": "utf-8"}, got.At(1).Extra.ToMap())
}

func TestStoreKeepsScalarFilterAndUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	content := "name: Scalar\nurl: https://a.example\nfilter: html2text,strip\nmax_tries: 3\nheaders:\n  Accept: text/html\n"
	path := testutil.WriteFile(t, dir, "urls.yaml", content)

	store := NewStore(path, testutil.NewLogger())
	require.NoError(t, store.Save(store.Load()))

	assert.Equal(t, content, testutil.ReadFile(t, path))
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(NewRegistry(NewRecord("https://a.example", "A"))))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "urls.yaml", entries[0].Name())
}

func TestStoreSaveEmptyRegistry(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(NewRegistry()))
	assert.Equal(t, "", testutil.ReadFile(t, store.Path()))
	assert.Equal(t, 0, store.Load().Len())
}

func TestStoreSaveBacksUpUnparsableFile(t *testing.T) {
	dir := t.TempDir()
	broken := "url: [unclosed\n"
	path := testutil.WriteFile(t, dir, "urls.yaml", broken)

	store := NewStore(path, testutil.NewLogger())
	reg := store.Load()
	reg.Append(NewRecord("https://a.example", "A"))
	require.NoError(t, store.Save(reg))

	assert.Equal(t, broken, testutil.ReadFile(t, path+".bak"))
	assert.Equal(t, 1, store.Load().Len())
}

func TestStoreUpdateSkipsSaveOnError(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(NewRegistry(NewRecord("https://a.example", "A"))))
	before := testutil.ReadFile(t, store.Path())

	boom := errors.New("boom")
	err := store.Update(func(reg *Registry) error {
		reg.Append(NewRecord("https://b.example", "B"))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, testutil.ReadFile(t, store.Path()))
}

func TestStoreUpdateFailsOnUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the jobs file fails every read with something
	// other than "not found", even when the tests run as root.
	path := filepath.Join(dir, "urls.yaml")
	testutil.WriteFile(t, path, "keep", "jobs live elsewhere\n")

	store := NewStore(path, testutil.NewLogger())
	assert.Equal(t, 0, store.Load().Len())

	called := false
	err := store.Update(func(reg *Registry) error {
		called = true
		reg.Append(NewRecord("https://new.example", ""))
		return nil
	})

	assert.True(t, types.IsKind(err, types.IOFailure))
	assert.False(t, called)
	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
	assert.Equal(t, "jobs live elsewhere\n", testutil.ReadFile(t, filepath.Join(path, "keep")))
	assert.NoFileExists(t, path+".bak")
}

func TestStoreUpdateCreatesFile(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(func(reg *Registry) error {
		reg.Append(NewRecord("https://a.example", "A"))
		return nil
	})
	require.NoError(t, err)

	reg := store.Load()
	require.Equal(t, 1, reg.Len())
	assert.Equal(t, "A", reg.At(0).Name)
}
