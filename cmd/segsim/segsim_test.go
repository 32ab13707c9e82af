package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// runSegsim executes the CLI with an empty home directory so no user configuration leaks in
func runSegsim(t *testing.T, home string, stdin string, args ...string) (string, error) {
	if home == "" {
		home = t.TempDir()
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--home", home}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir string, name string, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestRunScriptEviction(t *testing.T) {
	path := writeFile(t, t.TempDir(), "evict.yaml", `
memory: 50
steps:
  - op: request
    pid: 1
    sizes: [40]
  - op: request
    pid: 2
    sizes: [30]
    policy: best
  - op: status
  - op: release
    pid: 2
  - op: release
    pid: 2
`)

	out, err := runSegsim(t, "", "", "run", path)
	require.NoError(t, err)

	require.Contains(t, out, "Process 1 segment 0: 40 bytes at [0, 40) (FirstFit)")
	require.Contains(t, out, "Evicted process 1 (1 segments) to make room for process 2")
	require.Contains(t, out, "Process 2 segment 0: 30 bytes at [0, 30) (BestFit)")
	require.Contains(t, out, "Memory: 50 bytes, 20 free in 1 regions, 30 allocated in 1 segments for 1 processes")
	require.Contains(t, out, "  [30, 50)  size 20")
	require.Contains(t, out, "  pid 2  segment 0  [0, 30)  size 30")
	require.Contains(t, out, "Released 1 segments of process 2")
	require.Contains(t, out, "Process 2 owns no memory")
}

func TestRunScriptRollback(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rollback.yaml", `
steps:
  - op: init
    memory: 45
  - op: request
    pid: 3
    sizes: [20, 20, 20]
  - op: status
`)

	out, err := runSegsim(t, "", "", "run", path)
	require.NoError(t, err)

	require.Contains(t, out, "Initialized 45 bytes of memory")
	require.Contains(t, out, "Rolled back 2 segments of process 3")
	require.Contains(t, out, "Process 3: allocation failed")
	require.Contains(t, out, "  [0, 45)  size 45")
	require.NotContains(t, out, "pid 3  segment")
}

func TestRunScriptJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "json.yaml", `
memory: 100
steps:
  - op: status
`)

	out, err := runSegsim(t, "", "", "--json", "run", path)
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(out)), out)
	require.JSONEq(t, `{
		"TotalBytes": 100,
		"FreeBytes": 100,
		"FreeRegionCount": 1,
		"LargestFreeRegion": {"Start": 0, "Size": 100},
		"FreeRegions": [{"Start": 0, "Size": 100}],
		"Statistics": {
			"SegmentCount": 0,
			"SegmentBytes": 0,
			"ProcessCount": 0,
			"FreeRegionSizeMin": 100,
			"FreeRegionSizeMax": 100,
			"ExternalFragmentation": 0
		},
		"Segments": []
	}`, out)
}

func TestRunScriptErrors(t *testing.T) {
	dir := t.TempDir()

	testCases := map[string]struct {
		script   string
		expected string
	}{
		"UnknownOperation": {
			script:   "steps:\n  - op: defragment\n",
			expected: "step 1 (defragment)",
		},
		"InvalidSize": {
			script:   "steps:\n  - op: request\n    pid: 1\n    sizes: [0]\n",
			expected: "step 1 (request)",
		},
		"UnknownPolicy": {
			script:   "steps:\n  - op: request\n    pid: 1\n    sizes: [5]\n    policy: nextfit\n",
			expected: "step 1 (request)",
		},
		"UnknownField": {
			script:   "steps:\n  - op: status\n    colour: blue\n",
			expected: "parsing script",
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, name+".yaml", testCase.script)

			_, err := runSegsim(t, "", "", "run", path)
			require.Error(t, err)
			require.Contains(t, err.Error(), testCase.expected)
		})
	}

	_, err := runSegsim(t, "", "", "run", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestShell(t *testing.T) {
	input := `init 100
request 1 best 10 20

request 2 worst 5
bogus
request 1
release 1
exit
status
`

	out, err := runSegsim(t, "", input, "shell")
	require.NoError(t, err)

	require.Contains(t, out, "Initialized 100 bytes of memory")
	require.Contains(t, out, "Process 1 segment 0: 10 bytes at [0, 10) (BestFit)")
	require.Contains(t, out, "Process 1 segment 1: 20 bytes at [10, 30) (BestFit)")
	require.Contains(t, out, "Process 2 segment 0: 5 bytes at [30, 35) (WorstFit)")
	require.Contains(t, out, `Error: unknown command "bogus", try help`)
	require.Contains(t, out, "Error: usage: request PID POLICY SIZE...")
	require.Contains(t, out, "Released 2 segments of process 1")
	require.NotContains(t, out, "Memory:")
	require.NotContains(t, out, "segsim>")
}

func TestShellCompact(t *testing.T) {
	input := `request 1 first 10
request 2 first 20
request 3 first 30
release 2
compact
compact
status
`

	out, err := runSegsim(t, "", input, "--memory", "100", "shell")
	require.NoError(t, err)
	require.Contains(t, out, "Compacted memory: moved 1 segments (30 bytes)")
	require.Contains(t, out, "Compacted memory: moved 0 segments (0 bytes)")
	require.Contains(t, out, "  pid 3  segment 0  [10, 40)  size 30")
	require.Contains(t, out, "  [40, 100)  size 60")
}

func TestShellEndOfInput(t *testing.T) {
	out, err := runSegsim(t, "", "status", "--memory", "32", "shell")
	require.NoError(t, err)
	require.Contains(t, out, "Memory: 32 bytes, 32 free in 1 regions, 0 allocated in 0 segments for 0 processes")
}

func TestConfigFile(t *testing.T) {
	home := t.TempDir()
	writeFile(t, home, "config.yaml", "memory: 64\npolicy: worst\n")

	out, err := runSegsim(t, home, "request 1 first 8\nrequest 2 3 8\nstatus\n", "shell")
	require.NoError(t, err)
	require.Contains(t, out, "Memory: 64 bytes")
	require.Contains(t, out, "Process 2 segment 0: 8 bytes at [8, 16) (WorstFit)")

	// The configured policy is the default for script steps that don't name one
	path := writeFile(t, t.TempDir(), "default.yaml", "steps:\n  - op: request\n    pid: 1\n    sizes: [8]\n")
	out, err = runSegsim(t, home, "", "run", path)
	require.NoError(t, err)
	require.Contains(t, out, "(WorstFit)")

	// Flags set on the command line win over the config file
	out, err = runSegsim(t, home, "status\n", "--memory", "48", "shell")
	require.NoError(t, err)
	require.Contains(t, out, "Memory: 48 bytes")

	custom := writeFile(t, t.TempDir(), "custom.yaml", "memory: 16\n")
	out, err = runSegsim(t, home, "status\n", "--config", custom, "shell")
	require.NoError(t, err)
	require.Contains(t, out, "Memory: 16 bytes")
}

func TestEnvironmentConfig(t *testing.T) {
	t.Setenv("SEGSIM_MEMORY", "77")
	t.Setenv("SEGSIM_LOG_LEVEL", "error")

	out, err := runSegsim(t, "", "status\n", "shell")
	require.NoError(t, err)
	require.Contains(t, out, "Memory: 77 bytes")
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := runSegsim(t, "", "", "--log-level", "loud", "shell")
	require.Error(t, err)

	_, err = runSegsim(t, "", "", "--policy", "nextfit", "shell")
	require.Error(t, err)

	_, err = runSegsim(t, "", "", "--memory", "0", "shell")
	require.Error(t, err)
}

func TestDebugLogging(t *testing.T) {
	out, err := runSegsim(t, "", "request 1 first 8\n", "--log-level", "debug", "--memory", "16", "shell")
	require.NoError(t, err)
	require.Contains(t, out, "Allocator::RequestMemory")
	require.Contains(t, out, "requestStateCommit")
}
