package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	if os.Getenv("PULSAR_HELPER_PROCESS") != "" {
		runHelper(os.Getenv("PULSAR_HELPER_PROCESS"))
		return
	}
	goleak.VerifyTestMain(m)
}

// runHelper is executed inside the child started by the tests.
func runHelper(mode string) {
	switch mode {
	case "echo":
		fmt.Println("first line")
		fmt.Fprintln(os.Stderr, "error line")
		fmt.Println("value=" + os.Getenv("PULSAR_TEST_VALUE"))
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "boom")
		os.Exit(3)
	case "graceful":
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		fmt.Println("ready")
		<-sig
		fmt.Println("shutting down")
		os.Exit(0)
	case "stubborn":
		signal.Ignore(os.Interrupt)
		fmt.Println("ready")
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(2)
}

func helperSpec(mode string, handlers ...LineHandler) Spec {
	return Spec{
		Name:     "helper",
		Path:     os.Args[0],
		Args:     []string{"-test.run=^$"},
		Env:      map[string]string{"PULSAR_HELPER_PROCESS": mode, "PULSAR_TEST_VALUE": "42"},
		Handlers: handlers,
	}
}

type lineRecorder struct {
	mu    sync.Mutex
	lines map[Stream][]string
	ready chan struct{}
	once  sync.Once
}

func newRecorder() *lineRecorder {
	return &lineRecorder{lines: map[Stream][]string{}, ready: make(chan struct{})}
}

func (r *lineRecorder) handle(stream Stream, line string) {
	r.mu.Lock()
	r.lines[stream] = append(r.lines[stream], line)
	r.mu.Unlock()
	if line == "ready" {
		r.once.Do(func() { close(r.ready) })
	}
}

func (r *lineRecorder) get(stream Stream) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines[stream]...)
}

func TestStart_StreamsLines(t *testing.T) {
	rec := newRecorder()
	var raw bytes.Buffer
	spec := helperSpec("echo", rec.handle)
	spec.Output = &raw

	p, err := Start(context.Background(), spec)
	require.NoError(t, err)
	require.NoError(t, p.Wait())

	assert.Equal(t, []string{"first line", "value=42"}, rec.get(Stdout))
	assert.Equal(t, []string{"error line"}, rec.get(Stderr))
	assert.Contains(t, raw.String(), "value=42")
	assert.True(t, p.Exited())
	assert.Equal(t, "helper", p.Name())
}

func TestStart_ExitError(t *testing.T) {
	p, err := Start(context.Background(), helperSpec("fail"))
	require.NoError(t, err)
	assert.Error(t, p.Wait())
}

func TestStart_MissingBinary(t *testing.T) {
	_, err := Start(context.Background(), Spec{Name: "ghost", Path: filepath.Join(t.TempDir(), "ghost")})
	assert.Error(t, err)
}

func TestStart_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Start(ctx, helperSpec("echo"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStop_Graceful(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no interrupt signal on windows")
	}
	rec := newRecorder()
	p, err := Start(context.Background(), helperSpec("graceful", rec.handle))
	require.NoError(t, err)
	<-rec.ready

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.Contains(t, rec.get(Stdout), "shutting down")
}

func TestStop_KillsAfterDeadline(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no interrupt signal on windows")
	}
	rec := newRecorder()
	p, err := Start(context.Background(), helperSpec("stubborn", rec.handle))
	require.NoError(t, err)
	<-rec.ready

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err = p.Stop(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, p.Exited())
}

func TestStop_AlreadyExited(t *testing.T) {
	p, err := Start(context.Background(), helperSpec("echo"))
	require.NoError(t, err)
	_ = p.Wait()
	assert.NoError(t, p.Stop(context.Background()))
	assert.NoError(t, p.Kill())
}

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PULSAR_BIN_DIR", dir)
	t.Setenv("PATH", "")

	_, err := LookPath("subspace-node")
	assert.ErrorIs(t, err, ErrBinaryNotFound)

	name := "subspace-node"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	bin := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755))

	got, err := LookPath("subspace-node")
	require.NoError(t, err)
	assert.Equal(t, bin, got)
}

func TestBuildEnv(t *testing.T) {
	base := []string{"A=1", "B=2"}
	env := buildEnv(base, map[string]string{"B": "3", "C": "4"})
	assert.ElementsMatch(t, []string{"A=1", "B=3", "C=4"}, env)
	assert.Equal(t, []string{"A=1", "B=2"}, base)
}
