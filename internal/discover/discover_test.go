package discover

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyousuf/archaeo/internal/analyzer/ccpp"
	"github.com/imyousuf/archaeo/internal/lang"
	"github.com/imyousuf/archaeo/internal/model"
)

func newRegistry() *lang.Registry {
	r := lang.NewRegistry()
	ccpp.Register(r)
	return r
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func relPaths(files []model.FileDescriptor) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestDiscoverDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/zeta.cpp", "int z;\n")
	writeFile(t, root, "src/alpha.C", "int a;\n")
	writeFile(t, root, "include/alpha.h", "int a;\n")
	writeFile(t, root, "main.c", "int main(void) { return 0; }\n")
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, ".git/objects/x.c", "int x;\n")

	res, err := New(newRegistry(), Options{}).Discover(context.Background(), root)
	require.NoError(t, err)

	assert.False(t, res.Single)
	assert.Equal(t, []string{"include/alpha.h", "main.c", "src/alpha.C", "src/zeta.cpp"}, relPaths(res.Files))
	for i, f := range res.Files {
		assert.Equal(t, i, f.Index)
		assert.NoError(t, f.Err)
	}
	assert.Equal(t, model.LangCPP, res.Files[0].Language)
	assert.Equal(t, model.LangC, res.Files[1].Language)
	assert.Equal(t, model.LangC, res.Files[2].Language, "extension match ignores case")

	assert.Equal(t, []model.SkippedFile{{Path: "README.md", Reason: model.ReasonUnsupported}}, res.Skipped)
}

func TestDiscoverExcludeAndSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.cpp", "int k;\n")
	writeFile(t, root, "third_party/lib.cpp", "int l;\n")
	writeFile(t, root, "gen/big.cpp", "int b;\n")
	writeFile(t, root, "huge.cpp", string(make([]byte, 2048)))
	writeFile(t, root, ".gitignore", "gen/\n")

	res, err := New(newRegistry(), Options{
		Exclude:     []string{"third_party"},
		MaxFileSize: 1024,
	}).Discover(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"keep.cpp"}, relPaths(res.Files))
	assert.Contains(t, res.Skipped, model.SkippedFile{Path: "huge.cpp", Reason: model.ReasonTooLarge})
}

func TestDiscoverSymlinksIgnored(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "external.cpp", "int e;\n")
	writeFile(t, root, "local.cpp", "int l;\n")
	require.NoError(t, os.Symlink(filepath.Join(outside, "external.cpp"), filepath.Join(root, "link.cpp")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked_dir")))

	res, err := New(newRegistry(), Options{}).Discover(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"local.cpp"}, relPaths(res.Files))
	assert.Empty(t, res.Skipped)
}

func TestDiscoverSingleFile(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "solo.cc", "int s;\n")

	res, err := New(newRegistry(), Options{}).Discover(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, res.Single)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "solo.cc", res.Files[0].RelPath)
	assert.Equal(t, path, res.Files[0].Path)
	assert.Equal(t, int64(7), res.Files[0].Size)
}

func TestDiscoverSingleFileUnsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "script.py", "print(1)\n")

	_, err := New(newRegistry(), Options{}).Discover(context.Background(), path)
	assert.ErrorIs(t, err, model.ErrUnsupportedLanguage)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := New(newRegistry(), Options{}).Discover(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, model.ErrDiscovery)
}

func TestDiscoverUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission checks do not apply")
	}
	root := t.TempDir()
	writeFile(t, root, "ok.c", "int ok;\n")
	locked := filepath.Join(root, "locked")
	writeFile(t, root, "locked/hidden.c", "int h;\n")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	res, err := New(newRegistry(), Options{}).Discover(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, res.Files, 2)
	assert.Equal(t, "locked", res.Files[0].RelPath)
	assert.ErrorIs(t, res.Files[0].Err, model.ErrDiscovery)
	assert.Equal(t, "ok.c", res.Files[1].RelPath)
	assert.NoError(t, res.Files[1].Err)
}

func TestDiscoverCanceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.c", "int a;\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(newRegistry(), Options{}).Discover(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}
