package exec

// Runtime is the capability object code blocks reach back into: package
// installation, environment variables, images, and interactive input. The
// executor depends only on this interface; the CLI supplies a console-backed
// implementation and tests supply fakes.
type Runtime interface {
	// InstallPackages installs third-party packages, possibly after operator
	// confirmation. Returns false when installation was refused or failed.
	InstallPackages(names ...string) bool

	// GetEnv returns the value of a named environment variable/secret. It may
	// prompt the operator when unset and must cache the answer for the rest
	// of the task. desc explains why the code wants the value.
	GetEnv(name, def, desc string) string

	// ShowImage displays a local file or remote URL to the operator.
	ShowImage(path, url string)

	// Input reads one line of operator input.
	Input(prompt string) (string, error)
}

// noopRuntime answers every request with its zero value. Used when no runtime
// was registered for a language that wants one.
type noopRuntime struct{}

func (noopRuntime) InstallPackages(...string) bool { return false }
func (noopRuntime) GetEnv(_, def, _ string) string { return def }
func (noopRuntime) ShowImage(_, _ string)          {}
func (noopRuntime) Input(string) (string, error)   { return "", nil }
