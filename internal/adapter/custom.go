package adapter

import (
	"errors"
	"strings"
)

const ProjectPlaceholder = "{project}"

type CustomAdapter struct {
	name   string
	binary string
	args   []string
}

func NewCustomAdapter(name, binary string, args []string) *CustomAdapter {
	return &CustomAdapter{name: name, binary: binary, args: args}
}

func (a *CustomAdapter) Name() string   { return a.name }
func (a *CustomAdapter) Binary() string { return a.binary }

func (a *CustomAdapter) BuildInvocation(project string, p RunParams) Invocation {
	args := make([]string, len(a.args))
	hasPlaceholder := false
	for i, arg := range a.args {
		if strings.Contains(arg, ProjectPlaceholder) {
			hasPlaceholder = true
		}
		args[i] = strings.ReplaceAll(arg, ProjectPlaceholder, project)
	}
	if !hasPlaceholder {
		args = append(args, project)
	}

	return Invocation{
		Binary: a.binary,
		Args:   args,
		Dir:    p.WorkDir,
	}
}

func init() {
	register("custom", func(o Options) (Adapter, error) {
		if o.Binary == "" {
			return nil, errors.New("custom adapter requires a binary")
		}
		return NewCustomAdapter("custom", o.Binary, o.Args), nil
	})
}
