package pedal

import (
	"os"
	"strings"
)

// The backend may run under a different Python than any the host process
// environment refers to, so every variable naming the host interpreter is
// dropped before spawning. TK_LIBRARY and TCL_LIBRARY tend to point at the
// front-end installation and are dropped too.
const envDropMarker = "python"

var extraEnvDropList = []string{
	"TK_LIBRARY",
	"TCL_LIBRARY",
}

// DefaultEnvAllowlist names variables kept even though they match the drop
// marker. They configure behavior rather than identity.
var DefaultEnvAllowlist = []string{
	"PYTHONUSERBASE",
}

// backendEnv lists the variables forced into every backend process:
// unbuffered line-oriented I/O, a fixed stream encoding, and no bytecode
// cache files next to sources the user may not own.
var backendEnv = map[string]string{
	"PYTHONUNBUFFERED":        "1",
	"PYTHONIOENCODING":        "utf-8",
	"PYTHONDONTWRITEBYTECODE": "1",
}

// buildEnv produces the filtered child environment: the host environment
// minus interpreter-identity variables, plus the fixed backend variables,
// plus per-command overrides applied last.
func buildEnv(overrides map[string]string) []string {
	allowed := map[string]bool{}
	for _, key := range DefaultEnvAllowlist {
		allowed[key] = true
	}
	dropped := map[string]bool{}
	for _, key := range extraEnvDropList {
		dropped[key] = true
	}

	result := map[string]string{}
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if dropped[key] {
			continue
		}
		if strings.Contains(strings.ToLower(key), envDropMarker) && !allowed[key] {
			continue
		}
		result[key] = value
	}

	for key, value := range backendEnv {
		result[key] = value
	}
	for key, value := range overrides {
		result[key] = value
	}

	return mapToEnvSlice(result)
}

func mapToEnvSlice(values map[string]string) []string {
	out := make([]string, 0, len(values))
	for key, value := range values {
		out = append(out, key+"="+value)
	}
	return out
}
