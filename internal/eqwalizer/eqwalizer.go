// Package eqwalizer drives the eqWAlizer type-checker as a child process.
//
// The checker runs out-of-process and asks the driver, over a framed stdio
// protocol, for the parsed module representations it needs. The driver
// answers from the build database and collects the resulting diagnostics.
// Two modes exist: batch, where the driver hands the child a fixed module
// list, and shell, where the child decides which modules to visit and the
// driver follows along one memoized query at a time.
package eqwalizer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// Environment contract with the child process.
const (
	// EnvPathOverride points at a checker executable to use instead of the
	// bundled one. Read at provisioning time.
	EnvPathOverride = "ELP_EQWALIZER_PATH"

	envIPC             = "EQWALIZER_IPC"
	envUseConvertedAST = "EQWALIZER_USE_ELP_CONVERTED_AST"
	envShell           = "EQWALIZER_ELP_SHELL"
	envBuildInfo       = "EQWALIZER_BUILD_INFO"
	envASTDir          = "EQWALIZER_ELP_AST_DIR"
)

// tempPrefix is the file name prefix of the extracted checker executable.
const tempPrefix = "eqwalizer"

// execMode is owner-rwx, group/other-rx, applied to the extracted executable.
const execMode = os.FileMode(0o755)

// jvmStackSize is handed to java for JVM checker bundles; the checker's
// recursive descent needs a deep stack.
const jvmStackSize = "-Xss20M"

var (
	// ErrNoEmbeddedExecutable indicates a source build with no bundled
	// checker and no ELP_EQWALIZER_PATH override.
	ErrNoEmbeddedExecutable = errors.New("no bundled eqwalizer executable; set " + EnvPathOverride)
	// ErrUnknownExtension indicates a checker path with an extension this
	// driver cannot classify into an invocation.
	ErrUnknownExtension = errors.New("unknown eqwalizer executable extension")
)

// execFile is the provisioned checker executable, shared by reference count
// among all Eqwalizer clones and outstanding Commands. An extracted temp file
// is removed when the last reference drops; an override path is left alone.
type execFile struct {
	path string
	temp bool
	refs atomic.Int32
}

func (f *execFile) retain() {
	f.refs.Add(1)
}

func (f *execFile) release() {
	if f.refs.Add(-1) == 0 && f.temp {
		_ = os.Remove(f.path)
	}
}

// Eqwalizer builds child invocations for the provisioned checker. Values are
// cheap to clone; every clone shares the provisioned file, which stays on
// disk until the last clone and the last outstanding Command are closed.
type Eqwalizer struct {
	cmd  string
	args []string

	// Shell selects child-driven module visitation for Typecheck.
	Shell bool

	file      *execFile
	closeOnce sync.Once
}

// New provisions the checker executable and classifies its invocation.
// With ELP_EQWALIZER_PATH set, the named file is used in place. Otherwise the
// bundled executable is extracted to a temp file and made executable.
func New() (*Eqwalizer, error) {
	path, ext, file, err := provision()
	if err != nil {
		return nil, err
	}

	var cmd string

	var args []string

	switch ext {
	case "jar":
		cmd = "java"
		args = []string{jvmStackSize, "-jar", path}
	case "":
		cmd = path
	default:
		file.release()

		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, path)
	}

	return &Eqwalizer{cmd: cmd, args: args, file: file}, nil
}

func provision() (path, ext string, file *execFile, err error) {
	if override := os.Getenv(EnvPathOverride); override != "" {
		ext = strings.TrimPrefix(filepath.Ext(override), ".")
		file = &execFile{path: override}
		file.refs.Store(1)

		return override, ext, file, nil
	}

	if len(embeddedExe) == 0 {
		return "", "", nil, ErrNoEmbeddedExecutable
	}

	tmp, err := os.CreateTemp("", tempPrefix)
	if err != nil {
		return "", "", nil, fmt.Errorf("create eqwalizer temp executable: %w", err)
	}

	_, writeErr := tmp.Write(embeddedExe)
	if writeErr == nil {
		writeErr = tmp.Close()
	} else {
		_ = tmp.Close()
	}

	if writeErr == nil {
		writeErr = os.Chmod(tmp.Name(), execMode)
	}

	if writeErr != nil {
		_ = os.Remove(tmp.Name())

		return "", "", nil, fmt.Errorf("create eqwalizer temp executable: %w", writeErr)
	}

	file = &execFile{path: tmp.Name(), temp: true}
	file.refs.Store(1)

	return tmp.Name(), embeddedExt, file, nil
}

// Clone returns a new handle sharing the provisioned file. Each clone must be
// closed independently.
func (e *Eqwalizer) Clone() *Eqwalizer {
	e.file.retain()

	return &Eqwalizer{cmd: e.cmd, args: e.args, Shell: e.Shell, file: e.file}
}

// Close releases this handle's reference to the provisioned file. The file
// is removed once no clone and no outstanding Command refers to it.
func (e *Eqwalizer) Close() {
	e.closeOnce.Do(e.file.release)
}

// Command is a child invocation bundled with a reference to the provisioned
// file, so the executable cannot be removed while a spawn from it is
// possible. Callers append mode-specific args and env, then Close it when the
// child has been started (or abandoned).
type Command struct {
	*exec.Cmd

	file      *execFile
	closeOnce sync.Once
}

// Command returns a fresh child invocation with the classified argv.
func (e *Eqwalizer) Command() *Command {
	e.file.retain()

	cmd := exec.Command(e.cmd, e.args...)

	return &Command{Cmd: cmd, file: e.file}
}

// Close drops the command's reference to the provisioned file.
func (c *Command) Close() {
	c.closeOnce.Do(c.file.release)
}

// Passthrough runs the checker with caller-supplied args and inherited
// stdio, for sub-commands outside the IPC protocol. The child reads its
// inputs from astDir instead of requesting them over the pipe.
//
// The child's exit status is returned as-is so callers can propagate it; a
// non-zero status is not an error. The error is reserved for failures to run
// the child at all.
func (e *Eqwalizer) Passthrough(args []string, buildInfoPath, astDir string) (int, error) {
	cmd := e.Command()
	defer cmd.Close()

	cmd.Args = append(cmd.Args, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	addEnv(cmd.Cmd, buildInfoPath, astDir)

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return exitErr.ExitCode(), nil
		}

		return 0, fmt.Errorf("eqwalizer passthrough: %w", runErr)
	}

	return 0, nil
}

func addEnv(cmd *exec.Cmd, buildInfoPath, astDir string) {
	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}

	env = append(env, envBuildInfo+"="+buildInfoPath)
	if astDir != "" {
		env = append(env, envASTDir+"="+astDir)
	}

	cmd.Env = env
}
