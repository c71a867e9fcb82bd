package pedal

import "os"

// Options is the persisted front-end configuration this library reads and
// writes. The settings dialog lives in another component; it edits the same
// file, which is why Store can watch for external changes.
type Options struct {
	// WorkingDirectory is the directory the next backend process starts in.
	// Updated after every pump from the backend's tracked cwd.
	WorkingDirectory string `yaml:"working_directory"`
	// AutoCD makes capitalized run commands change to the script's directory.
	AutoCD bool `yaml:"auto_cd"`
	// BackendConfiguration selects the backend, e.g. "Python (/usr/bin/python3)".
	BackendConfiguration string `yaml:"backend_configuration"`
	// UsedInterpreters remembers interpreters that have been run before, for
	// the selection dialog.
	UsedInterpreters []string `yaml:"used_interpreters"`
}

// DefaultOptions mirrors the values a fresh installation starts with.
func DefaultOptions() Options {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Options{
		WorkingDirectory:     home,
		AutoCD:               true,
		BackendConfiguration: formatConfiguration("Python", DefaultPythonInterpreter),
	}
}
