package adapter

import "path/filepath"

const DefaultBrowsers = "ChromeHeadless"

type NgAdapter struct {
	binary     string
	browsers   string
	extraFlags []string
}

func NewNgAdapter(binary, browsers string, extraFlags []string) *NgAdapter {
	if binary == "" {
		binary = "ng"
	}
	if browsers == "" {
		browsers = DefaultBrowsers
	}
	return &NgAdapter{binary: binary, browsers: browsers, extraFlags: extraFlags}
}

func (a *NgAdapter) Name() string   { return "ng" }
func (a *NgAdapter) Binary() string { return a.binary }

func (a *NgAdapter) BuildInvocation(project string, p RunParams) Invocation {
	var args []string
	// npx resolves the workspace-local CLI.
	if filepath.Base(a.binary) == "npx" {
		args = append(args, "ng")
	}
	args = append(args, "test", project, "--no-watch", "--browsers="+a.browsers)
	args = append(args, a.extraFlags...)

	return Invocation{
		Binary: a.binary,
		Args:   args,
		Dir:    p.WorkDir,
	}
}

func init() {
	register("ng", func(o Options) (Adapter, error) {
		return NewNgAdapter(o.Binary, o.Browsers, o.Args), nil
	})
}
