package ordinal

import (
	"bufio"
	"io"
	"os/exec"
	"time"
)

// shellPath and shellFlag select the command interpreter used to run a
// resolved command string. The shell is intentionally available for
// user-authored multi-command lines (e.g. "rm -rf bin/ && mkdir bin");
// what changes from the original single `system()` call is that argv and
// environment are under our control rather than opaque to the caller.
const (
	shellPath = "/bin/sh"
	shellFlag = "-c"
)

// runCommand executes command through the system shell, streaming stdout
// and stderr to output (if non-nil) as they are produced, and returns the
// elapsed wall-clock time and the process's exit code.
func runCommand(target, command string, output OutputFunc) (elapsedMs int64, exitCode int, err error) {
	cmd := exec.Command(shellPath, shellFlag, command)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, -1, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, -1, err
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return 0, -1, err
	}

	done := make(chan struct{}, 2)
	go streamTo(target, "stdout", stdout, output, done)
	go streamTo(target, "stderr", stderr, output, done)
	<-done
	<-done

	waitErr := cmd.Wait()
	elapsedMs = time.Since(start).Milliseconds()

	if waitErr == nil {
		return elapsedMs, 0, nil
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return elapsedMs, exitErr.ExitCode(), waitErr
	}
	return elapsedMs, -1, waitErr
}

func streamTo(target, stream string, r io.Reader, output OutputFunc, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	if output == nil {
		io.Copy(io.Discard, r)
		return
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		output(target, stream, scanner.Bytes())
	}
}
