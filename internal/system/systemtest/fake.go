// Package systemtest provides a scripted in-memory implementation of the
// system interfaces for tests.
package systemtest

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nholik/bt-sentinel/internal/system"
)

// Response is the scripted outcome for one command line.
type Response struct {
	Result system.Result
	Err    error
}

// Fake implements system.Commander and system.FS from scripted fixtures.
// The zero value is usable: unscripted commands succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	missing   map[string]bool
	files     map[string]string
	writeErr  map[string]error
	globs     map[string][]string
	dirs      map[string]bool
	links     map[string]string
	calls     []string
	writes    []string
}

// Script registers the response for an exact command line ("lsusb" or
// "systemctl is-active bluetooth").
func (f *Fake) Script(cmdline string, r Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.responses == nil {
		f.responses = map[string]Response{}
	}
	f.responses[cmdline] = r
}

// ScriptOutput registers a zero-exit response with the given stdout.
func (f *Fake) ScriptOutput(cmdline, stdout string) {
	f.Script(cmdline, Response{Result: system.Result{Stdout: stdout}})
}

// ScriptExit registers a response with the given exit code and stdout.
func (f *Fake) ScriptExit(cmdline string, code int, stdout string) {
	f.Script(cmdline, Response{Result: system.Result{ExitCode: code, Stdout: stdout}})
}

// MarkMissing makes LookPath report the tool as absent and Run return
// system.ErrToolMissing for it.
func (f *Fake) MarkMissing(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing == nil {
		f.missing = map[string]bool{}
	}
	f.missing[name] = true
}

// SetFile seeds a readable file.
func (f *Fake) SetFile(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files == nil {
		f.files = map[string]string{}
	}
	f.files[path] = content
}

// SetWriteError makes WriteFile fail for path.
func (f *Fake) SetWriteError(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr == nil {
		f.writeErr = map[string]error{}
	}
	f.writeErr[path] = err
}

// SetGlob seeds the expansion for an exact pattern.
func (f *Fake) SetGlob(pattern string, matches ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.globs == nil {
		f.globs = map[string][]string{}
	}
	f.globs[pattern] = matches
}

// SetDir marks a path as existing without content.
func (f *Fake) SetDir(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirs == nil {
		f.dirs = map[string]bool{}
	}
	f.dirs[path] = true
}

// Calls returns the command lines run so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CalledWith reports whether any recorded command line contains substr.
func (f *Fake) CalledWith(substr string) bool {
	for _, call := range f.Calls() {
		if strings.Contains(call, substr) {
			return true
		}
	}
	return false
}

// Writes returns "path=content" entries for every WriteFile call, in order.
func (f *Fake) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

// FileContent returns the current content of a seeded or written file.
func (f *Fake) FileContent(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[path]
}

// Run implements system.Commander.
func (f *Fake) Run(_ context.Context, name string, args ...string) (system.Result, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	f.calls = append(f.calls, cmdline)
	missing := f.missing[name]
	response, scripted := f.responses[cmdline]
	f.mu.Unlock()

	if missing {
		return system.Result{}, system.ErrToolMissing
	}
	if !scripted {
		return system.Result{}, nil
	}
	return response.Result, response.Err
}

// RunTimeout implements system.Commander; the timeout is ignored.
func (f *Fake) RunTimeout(ctx context.Context, _ time.Duration, name string, args ...string) (system.Result, error) {
	return f.Run(ctx, name, args...)
}

// LookPath implements system.Commander.
func (f *Fake) LookPath(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.missing[name]
}

// ReadFile implements system.FS.
func (f *Fake) ReadFile(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	if !ok {
		return "", os.ErrNotExist
	}
	return content, nil
}

// WriteFile implements system.FS.
func (f *Fake) WriteFile(path, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErr[path]; err != nil {
		return err
	}
	if f.files == nil {
		f.files = map[string]string{}
	}
	f.files[path] = content
	f.writes = append(f.writes, path+"="+content)
	return nil
}

// Glob implements system.FS.
func (f *Fake) Glob(pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.globs[pattern]...), nil
}

// SetLink seeds a symlink resolution for Resolve.
func (f *Fake) SetLink(path, target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.links == nil {
		f.links = map[string]string{}
	}
	f.links[path] = target
}

// Resolve implements system.FS. Unmapped paths resolve to themselves.
func (f *Fake) Resolve(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if target, ok := f.links[path]; ok {
		return target, nil
	}
	return path, nil
}

// Exists implements system.FS.
func (f *Fake) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirs[path] {
		return true
	}
	_, ok := f.files[path]
	return ok
}
