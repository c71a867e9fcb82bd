package pedal

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
)

// Interpreter discovery for the selection dialog. Best-effort enumeration:
// conventional install locations, PATH lookups, the configured interpreter
// and previously used ones, deduplicated through symlink resolution.

var unixInterpreterDirs = []string{
	"/bin",
	"/usr/bin",
	"/usr/local/bin",
}

var interpreterNames = []string{
	"python3",
	"python3.11",
	"python3.12",
	"python3.13",
	"python3.14",
}

// FindInterpreters enumerates plausible interpreter executables. store may
// be nil; results are sorted absolute paths of files that exist right now.
func FindInterpreters(store *Store) []string {
	found := map[string]bool{}

	add := func(path string) {
		if path == "" {
			return
		}
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return
		}
		info, err := os.Stat(resolved)
		if err != nil || info.IsDir() {
			return
		}
		abs, err := filepath.Abs(resolved)
		if err != nil {
			return
		}
		found[abs] = true
	}

	dirs := append([]string(nil), unixInterpreterDirs...)
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"))
	}
	if runtime.GOOS == "darwin" {
		for _, version := range []string{"3.11", "3.12", "3.13", "3.14"} {
			dirs = append(dirs, filepath.Join("/Library/Frameworks/Python.framework/Versions", version, "bin"))
		}
	}

	for _, dir := range dirs {
		for _, name := range interpreterNames {
			add(filepath.Join(dir, name))
		}
	}

	for _, name := range interpreterNames {
		if path, err := exec.LookPath(name); err == nil {
			add(path)
		}
	}

	if store != nil {
		options := store.Get()
		_, configured := parseConfiguration(options.BackendConfiguration)
		if configured != "" && configured != DefaultPythonInterpreter {
			add(configured)
		}
		for _, path := range options.UsedInterpreters {
			add(path)
		}
	}

	result := make([]string, 0, len(found))
	for path := range found {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}
