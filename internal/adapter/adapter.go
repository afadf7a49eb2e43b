package adapter

import "time"

type RunParams struct {
	WorkDir string
	Timeout time.Duration
	Env     []string
}

type Invocation struct {
	Binary string
	Args   []string
	Dir    string
}

// Adapter turns a project identifier into the external test command for it.
type Adapter interface {
	Name() string
	Binary() string
	BuildInvocation(project string, params RunParams) Invocation
}
