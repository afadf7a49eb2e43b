package affected

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebeauty/paratest/internal/workspace"
)

var projects = []workspace.Project{
	{Name: "shop", Root: "projects/shop"},
	{Name: "admin", Root: "projects/admin"},
	{Name: "ui-kit", Root: "projects/ui-kit/"},
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		changed []string
		want    []string
	}{
		{"none", nil, nil},
		{"one project", []string{"projects/admin/src/app.ts"}, []string{"admin"}},
		{"workspace order", []string{"projects/ui-kit/a.ts", "projects/shop/b.ts"}, []string{"shop", "ui-kit"}},
		{"prefix is not a match", []string{"projects/shop-legacy/x.ts"}, nil},
		{"global file", []string{"README.md", "package.json"}, []string{"shop", "admin", "ui-kit"}},
		{"unrelated file", []string{"docs/guide.md"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(projects, tt.changed))
		})
	}
}

func TestSelectRootProject(t *testing.T) {
	ps := []workspace.Project{{Name: "app", Root: ""}, {Name: "lib", Root: "projects/lib"}}
	assert.Equal(t, []string{"app"}, Select(ps, []string{"src/main.ts"}))
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestChangedFiles(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	write := func(name, content string) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	git(t, dir, "init", "-q")
	write("projects/shop/a.ts", "a")
	write("projects/admin/b.ts", "b")
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-q", "-m", "init")

	write("projects/shop/a.ts", "changed")
	write("projects/ui-kit/new.ts", "new")
	write("projects/admin/c.ts", "staged")
	git(t, dir, "add", "projects/admin/c.ts")

	files, err := ChangedFiles(dir, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"projects/admin/c.ts",
		"projects/shop/a.ts",
		"projects/ui-kit/new.ts",
	}, files)
	assert.Equal(t, []string{"shop", "admin", "ui-kit"}, Select(projects, files))
}

func TestChangedFilesOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	_, err := ChangedFiles(t.TempDir(), "")
	assert.Error(t, err)
}
