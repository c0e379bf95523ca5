package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
)

// DependencyIssue is a binary a server needs but that could not be found.
type DependencyIssue struct {
	Binary      string `json:"binary"`
	RequiredBy  string `json:"requiredBy"`
	InstallHint string `json:"installHint"`
}

const (
	requiredByCommand = "server command"
	requiredByRuntime = "command/runtime requirements"
)

// binaryOf returns the first word of command without surrounding quotes.
func binaryOf(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], `"'`)
}

func isProbablyPath(binary string) bool {
	return strings.ContainsAny(binary, `/\`) || strings.HasSuffix(binary, ".exe") || strings.HasSuffix(binary, ".cmd")
}

func platformName(goos string) string {
	switch goos {
	case "windows":
		return "Windows"
	case "darwin":
		return "macOS"
	default:
		return "Linux"
	}
}

func installHint(goos, binary string) string {
	platform := platformName(goos)
	switch binary {
	case "node", "npm", "npx", "pnpm", "yarn", "bun":
		return fmt.Sprintf("%s: install Node.js LTS and ensure `node`/`npm` are on PATH.", platform)
	case "python", "python3", "pip", "pip3", "uv", "pipx":
		return fmt.Sprintf("%s: install Python 3 and ensure `python` is on PATH. For `uv`, see docs.astral.sh/uv.", platform)
	case "docker":
		return fmt.Sprintf("%s: install Docker Desktop (or Docker Engine) and ensure `docker` is on PATH.", platform)
	default:
		return fmt.Sprintf("%s: install `%s` and make sure it is available on PATH.", platform, binary)
	}
}

// requiredBinaries returns the command binary and the runtimes it implies.
func requiredBinaries(command string, args []string) (string, []string) {
	base := binaryOf(command)
	required := map[string]bool{}
	if base != "" {
		required[base] = true
	}

	switch base {
	case "npx", "npm", "node", "pnpm", "yarn", "bun":
		required["node"] = true
	case "python", "python3", "pip", "pip3", "uv", "pipx":
		required["python"] = true
	case "docker":
		required["docker"] = true
	}
	for _, arg := range args {
		if strings.HasSuffix(arg, ".py") {
			required["python"] = true
		}
		if strings.Contains(strings.ToLower(arg), "docker") {
			required["docker"] = true
		}
	}

	out := make([]string, 0, len(required))
	for b := range required {
		out = append(out, b)
	}
	sort.Strings(out)
	return base, out
}

func (d *Diagnostics) commandExists(binary string) bool {
	if binary == "" {
		return false
	}
	if isProbablyPath(binary) {
		_, err := d.stat(binary)
		return err == nil
	}
	_, err := d.lookPath(binary)
	return err == nil
}

// CheckDependencies returns the binaries command needs that are missing,
// sorted by name.
func (d *Diagnostics) CheckDependencies(command string, args []string) []DependencyIssue {
	base, required := requiredBinaries(command, args)

	var missing []DependencyIssue
	for _, binary := range required {
		if d.commandExists(binary) {
			continue
		}
		requiredBy := requiredByRuntime
		if binary == base {
			requiredBy = requiredByCommand
		}
		missing = append(missing, DependencyIssue{
			Binary:      binary,
			RequiredBy:  requiredBy,
			InstallHint: installHint(d.goos, binary),
		})
	}
	return missing
}

var (
	defaultLookPath = exec.LookPath
	defaultStat     = os.Stat
	defaultGOOS     = runtime.GOOS
)
