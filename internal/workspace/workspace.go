// Package workspace reads the project list from an Angular workspace manifest.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const DefaultManifest = "angular.json"

// Project is one entry of the manifest's "projects" section. Root is relative
// to the workspace directory; "" is the workspace root itself.
type Project struct {
	Name string `json:"name"`
	Root string `json:"root"`
}

// Load returns the project names declared in the manifest at path, in the
// order they appear in the file.
func Load(path string) ([]string, error) {
	projects, err := LoadProjects(path)
	if err != nil {
		return nil, err
	}
	return Names(projects), nil
}

func LoadProjects(path string) ([]Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening workspace manifest: %w", err)
	}
	defer f.Close()

	projects, err := ParseProjects(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return projects, nil
}

func Names(projects []Project) []string {
	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.Name
	}
	return names
}

func Parse(r io.Reader) ([]string, error) {
	projects, err := ParseProjects(r)
	if err != nil {
		return nil, err
	}
	return Names(projects), nil
}

// ParseProjects walks the top-level object and collects the entries of
// "projects" without decoding it into a map, which would lose their order.
func ParseProjects(r io.Reader) ([]Project, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var (
		projects []Project
		found    bool
	)
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != "projects" {
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}
		found = true
		projects, err = readProjects(dec)
		if err != nil {
			return nil, fmt.Errorf("projects: %w", err)
		}
	}
	if !found {
		return nil, errors.New(`no "projects" section`)
	}
	return projects, nil
}

func readProjects(dec *json.Decoder) ([]Project, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	projects := []Project{}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var body struct {
			Root string `json:"root"`
		}
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("project %q: %w", name, err)
		}
		projects = append(projects, Project{Name: name, Root: body.Root})
	}
	_, err := dec.Token()
	return projects, err
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func skipValue(dec *json.Decoder) error {
	var raw json.RawMessage
	return dec.Decode(&raw)
}
