package adapter

import (
	"fmt"
	"sort"
	"strings"
)

// Options configures an adapter instance.
type Options struct {
	Binary   string
	Args     []string
	Browsers string
}

type factory func(o Options) (Adapter, error)

var builtins = map[string]factory{}

func register(name string, f factory) {
	builtins[name] = f
}

func Get(name string, o Options) (Adapter, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q (want one of: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return f(o)
}

func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves the adapter for a configured command. An empty name selects
// the Angular CLI adapter.
func Build(name, binary string, args []string, browsers string) (Adapter, error) {
	if name == "" {
		name = "ng"
	}
	return Get(name, Options{Binary: binary, Args: args, Browsers: browsers})
}
