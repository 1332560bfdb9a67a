/*
Copyright 2019 The MayaData Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bootstrap

import (
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// runResult carries the paths of the tee'd log files alongside the
// child's exit code, for stages that want to inspect them afterward.
type runResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// runCommand executes args in cwd, forwarding the child's stdout and
// stderr byte-for-byte to this process's own stdout/stderr while also
// teeing each stream to a file in a scratch directory.
//
// The two streams are read by two independent goroutines started
// concurrently and joined with a WaitGroup before the child is waited
// on. The original Python bootstrapper started each reader with
// `Thread(...).run()` instead of `.start()`, which runs both readers
// synchronously on the calling thread -- the second stream is never
// read until the first hits EOF, risking a pipe-buffer deadlock if the
// child writes enough to either stream before exiting. Real goroutines
// started with `go` avoid that entirely.
func runCommand(logger *zap.SugaredLogger, name string, args []string, cwd string) (*runResult, error) {
	scratchDir, err := ioutil.TempDir("", "legion-bootstrap-")
	if err != nil {
		return nil, err
	}
	stdoutPath := filepath.Join(scratchDir, "stdout.log")
	stderrPath := filepath.Join(scratchDir, "stderr.log")

	logger.Infow("executing command", "name", name, "args", args, "cwd", cwd)

	cmd := exec.Command(name, args...)
	cmd.Dir = cwd

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go teeStream(&wg, stdoutPipe, os.Stdout, stdoutPath, logger)
	go teeStream(&wg, stderrPipe, os.Stderr, stderrPath, logger)
	wg.Wait()

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, err
		}
	}

	return &runResult{ExitCode: exitCode, Stdout: stdoutPath, Stderr: stderrPath}, nil
}

// teeStream copies src to dst and to a scratch file, byte-by-byte, so
// neither a slow parent terminal nor a slow disk can stall the other
// stream's reader.
func teeStream(wg *sync.WaitGroup, src io.Reader, dst io.Writer, path string, logger *zap.SugaredLogger) {
	defer wg.Done()

	out, err := os.Create(path)
	if err != nil {
		logger.Errorw("cannot open tee file", "path", path, "error", err)
		_, _ = io.Copy(dst, src)
		return
	}
	defer out.Close()

	mw := io.MultiWriter(dst, out)
	if _, err := io.Copy(mw, src); err != nil {
		logger.Warnw("stream copy ended with error", "path", path, "error", err)
	}
}
