package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/autonomys/pulsar/internal/paths"
	"go.uber.org/zap"
)

// ErrBinaryNotFound is returned by LookPath when the executable is neither
// installed in the binary directory nor on PATH.
var ErrBinaryNotFound = errors.New("executable not found")

// Stream identifies the output stream a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// LineHandler receives every output line of the child. Handlers run on the
// reader goroutine of their stream and must not block.
type LineHandler func(stream Stream, line string)

// Spec describes the child to start.
type Spec struct {
	Name     string // Used in log fields and errors (e.g., "node")
	Path     string
	Args     []string
	Env      map[string]string
	Dir      string
	Logger   *zap.Logger
	Handlers []LineHandler
	// Output, when set, also receives the raw output of both streams.
	Output io.Writer
}

// Process is a running child.
type Process struct {
	name   string
	cmd    *exec.Cmd
	logger *zap.Logger

	done    chan struct{}
	waitErr error

	outMu sync.Mutex

	stopOnce sync.Once
}

// Start launches the child described by spec. The context only bounds the
// start itself; use Stop to end the process.
func Start(ctx context.Context, spec Spec) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := spec.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", spec.Name))

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = buildEnv(os.Environ(), spec.Env)
	configureSysProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stdout pipe: %w", spec.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stderr pipe: %w", spec.Name, err)
	}

	logger.Debug("starting process", zap.String("path", spec.Path), zap.Strings("args", spec.Args))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", spec.Name, err)
	}

	p := &Process{
		name:   spec.Name,
		cmd:    cmd,
		logger: logger,
		done:   make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go p.pump(&readers, Stdout, stdout, spec)
	go p.pump(&readers, Stderr, stderr, spec)

	go func() {
		readers.Wait()
		p.waitErr = cmd.Wait()
		if p.waitErr != nil {
			logger.Debug("process exited", zap.Error(p.waitErr))
		} else {
			logger.Debug("process exited cleanly")
		}
		close(p.done)
	}()

	return p, nil
}

func (p *Process) pump(wg *sync.WaitGroup, stream Stream, r io.Reader, spec Spec) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		p.logger.Debug(line, zap.String("stream", string(stream)))
		if spec.Output != nil {
			p.outMu.Lock()
			fmt.Fprintln(spec.Output, line)
			p.outMu.Unlock()
		}
		for _, h := range spec.Handlers {
			h(stream, line)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		p.logger.Warn("reading process output", zap.String("stream", string(stream)), zap.Error(err))
	}
	// Drain so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// Name returns the name given in Spec.
func (p *Process) Name() string { return p.name }

// Pid returns the operating system process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Done is closed once the child has exited and its output is drained.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the child exits and returns its exit error.
func (p *Process) Wait() error {
	<-p.done
	return p.waitErr
}

// Exited reports whether the child has already exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Stop asks the child to shut down and waits for it. When ctx ends first the
// child is killed. The exit status caused by the interrupt itself is not
// reported as an error.
func (p *Process) Stop(ctx context.Context) error {
	if p.Exited() {
		return nil
	}

	p.stopOnce.Do(func() {
		p.logger.Debug("interrupting process")
		if err := interrupt(p.cmd.Process); err != nil {
			p.logger.Debug("interrupt failed, killing", zap.Error(err))
			_ = p.cmd.Process.Kill()
		}
	})

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn("process did not stop in time, killing")
		if err := p.Kill(); err != nil {
			return err
		}
		return fmt.Errorf("%s killed after %w", p.name, ctx.Err())
	}
}

// Kill terminates the child immediately and waits for it to be reaped.
func (p *Process) Kill() error {
	if p.Exited() {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing %s: %w", p.name, err)
	}
	<-p.done
	return nil
}

func interrupt(proc *os.Process) error {
	if runtime.GOOS == "windows" {
		return errors.New("interrupt is not supported on windows")
	}
	return proc.Signal(os.Interrupt)
}

// LookPath finds an executable in the pulsar binary directory first and then
// on PATH.
func LookPath(name string) (string, error) {
	file := name
	if runtime.GOOS == "windows" && !strings.HasSuffix(file, ".exe") {
		file += ".exe"
	}
	if dir, err := paths.BinaryDir(); err == nil {
		candidate := filepath.Join(dir, file)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
}

// buildEnv overlays extra on base, replacing existing keys.
func buildEnv(base []string, extra map[string]string) []string {
	env := append([]string(nil), base...)
	for k, v := range extra {
		env = setEnv(env, k, v)
	}
	return env
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
