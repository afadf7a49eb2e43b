// Package affected narrows a workspace's project list to the projects touched
// by uncommitted or branch-local git changes.
package affected

import (
	"fmt"
	"os/exec"
	"path"
	"strings"

	"github.com/codebeauty/paratest/internal/workspace"
)

// globalFiles affect every project when changed.
var globalFiles = []string{
	"angular.json",
	"package.json",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"karma.conf.js",
	"tsconfig.json",
	"tsconfig.spec.json",
}

// ChangedFiles lists files changed in the working tree: staged, unstaged and
// untracked. With a base ref it also includes commits since the merge base.
// Paths are slash-separated and relative to workDir; changes outside workDir
// are ignored.
func ChangedFiles(workDir, base string) ([]string, error) {
	queries := [][]string{
		{"diff", "--name-only", "--relative", "--staged"},
		{"diff", "--name-only", "--relative"},
		{"ls-files", "--others", "--exclude-standard"},
	}
	if base != "" {
		queries = append(queries, []string{"diff", "--name-only", "--relative", base + "...HEAD"})
	}

	seen := make(map[string]bool)
	var files []string
	for _, args := range queries {
		out, err := runGit(workDir, args...)
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Split(out, "\n") {
			if line = strings.TrimSpace(line); line != "" && !seen[line] {
				seen[line] = true
				files = append(files, line)
			}
		}
	}
	return files, nil
}

// Select returns the names of projects owning at least one changed file, in
// workspace order. A change to a global file, or a project rooted at the
// workspace root, selects everything.
func Select(projects []workspace.Project, changed []string) []string {
	for _, f := range changed {
		if isGlobal(f) {
			return workspace.Names(projects)
		}
	}

	var selected []string
	for _, p := range projects {
		root := strings.Trim(path.Clean("/"+p.Root), "/")
		for _, f := range changed {
			if root == "" || f == root || strings.HasPrefix(f, root+"/") {
				selected = append(selected, p.Name)
				break
			}
		}
	}
	return selected
}

func isGlobal(file string) bool {
	for _, g := range globalFiles {
		if file == g {
			return true
		}
	}
	return false
}

func runGit(workDir string, args ...string) (string, error) {
	args = append([]string{"-c", "core.quotepath=off"}, args...)
	cmd := exec.Command("git", args...)
	cmd.Dir = workDir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args[2:], " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
