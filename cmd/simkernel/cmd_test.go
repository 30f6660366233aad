package main

import (
	"bytes"
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunThenStatusRoundTrip(t *testing.T) {
	dir := t.TempDir()

	runCmd := newRootCommand()
	var runOut bytes.Buffer
	runCmd.SetOut(&runOut)
	runCmd.SetArgs([]string{"run", "--log-dir", dir, "--ticks", "50"})
	require.NoError(t, runCmd.Execute())
	require.FileExists(t, filepath.Join(dir, "status.json"))

	statusCmd := newRootCommand()
	var statusOut bytes.Buffer
	statusCmd.SetOut(&statusOut)
	statusCmd.SetArgs([]string{"status", "--log-dir", dir})
	require.NoError(t, statusCmd.Execute())
	require.Contains(t, statusOut.String(), "elapsed ticks")
}

func TestVersionCommandPrintsAppName(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "simkernel")
}

func TestStatusWithoutPriorRunErrors(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCommand()
	cmd.SetArgs([]string{"status", "--log-dir", dir})
	require.Error(t, cmd.Execute())
}

func TestRunRejectsUnreadableModelDescriptor(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCommand()
	cmd.SetArgs([]string{"run", "--log-dir", dir, filepath.Join(dir, "missing.yaml")})
	require.Error(t, cmd.Execute())
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRunAcceptsMetricsAddrAndShutsDownCleanly(t *testing.T) {
	dir := t.TempDir()
	addr := freeAddr(t)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"run", "--log-dir", dir, "--ticks", "0", "--retire-threshold", "10", "--metrics-addr", addr})
	require.NoError(t, cmd.Execute())

	// the run command's deferred Shutdown should have already torn the
	// listener down by the time Execute returns.
	resp, err := http.Get("http://" + addr + "/metrics")
	require.Error(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
}

func TestRunAcceptsRetireThresholdOverride(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCommand()
	cmd.SetArgs([]string{"run", "--log-dir", dir, "--retire-threshold", "30", "--ticks", "0"})
	require.NoError(t, cmd.Execute())

	s, err := readSnapshot(dir)
	require.NoError(t, err)
	require.Equal(t, "stopRunning called", s.StopReason)
}
