package pedal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LauncherFunc returns the path to the backend entry script, preparing the
// launch directory first if needed. The proxy calls it before every process
// start; implementations must be idempotent.
type LauncherFunc func() (string, error)

const launcherScriptName = "backend_launcher.py"

// LauncherConfig describes the self-contained launch directory the backend
// process runs from. The directory holds copies of the support files the
// backend imports, stamped with a version marker so it is rebuilt only when
// the front-end version changes.
type LauncherConfig struct {
	// UserDir is the per-user data directory; the launch dir lives under it.
	UserDir string
	// Version stamps the launch dir. A mismatch triggers a rebuild.
	Version string
	// SourceDir holds the originals of the entry script and support files.
	SourceDir string
	// SupportFiles are copied next to the entry script, relative to SourceDir.
	SupportFiles []string
}

// PrepareLauncher builds a LauncherFunc for cfg.
func PrepareLauncher(cfg LauncherConfig) LauncherFunc {
	return func() (string, error) {
		return prepareLaunchDir(cfg)
	}
}

func prepareLaunchDir(cfg LauncherConfig) (string, error) {
	if cfg.UserDir == "" {
		return "", fmt.Errorf("launcher: user dir is required")
	}

	launchDir := filepath.Join(cfg.UserDir, "backend")
	launcherPath := filepath.Join(launchDir, launcherScriptName)
	stampPath := filepath.Join(launchDir, "VERSION")

	if stamp, err := os.ReadFile(stampPath); err == nil {
		if strings.TrimSpace(string(stamp)) == cfg.Version {
			return launcherPath, nil
		}
	}

	// Remove the stamp first so a partially rebuilt dir is never mistaken
	// for a complete one.
	_ = os.Remove(stampPath)
	if err := os.RemoveAll(launchDir); err != nil {
		return "", fmt.Errorf("launcher: clear launch dir: %w", err)
	}
	if err := os.MkdirAll(launchDir, 0o755); err != nil {
		return "", fmt.Errorf("launcher: create launch dir: %w", err)
	}

	names := append([]string{launcherScriptName}, cfg.SupportFiles...)
	for _, name := range names {
		source := filepath.Join(cfg.SourceDir, name)
		dest := filepath.Join(launchDir, name)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", fmt.Errorf("launcher: %w", err)
		}
		if err := copyFile(source, dest); err != nil {
			return "", fmt.Errorf("launcher: copy %s: %w", name, err)
		}
	}

	if err := os.WriteFile(stampPath, []byte(cfg.Version+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("launcher: write version stamp: %w", err)
	}
	return launcherPath, nil
}

func copyFile(source string, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
