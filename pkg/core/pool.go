package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// runBatches calls fn(i) for every i in [0, n), size goroutines at a time.
// A batch is fully joined before the next one starts. A failing call does not
// stop the others; all errors are joined.
func runBatches(ctx context.Context, n, size int, fn func(i int) error) error {
	var errs []error
	for start := 0; start < n; start += size {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		end := min(start+size, n)

		var wg sync.WaitGroup
		errCh := make(chan error, end-start)
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if err := fn(i); err != nil {
					errCh <- err
				}
			}(i)
		}
		wg.Wait()
		close(errCh)

		for err := range errCh {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// workerTask is one invocation of the worker subcommand.
type workerTask struct {
	name   string   // for logs
	args   []string // after "worker"
	onDone func()   // called after a successful exit
}

// runProcesses runs tasks as child processes of opts.Executable, keeping at
// most opts.Processes alive. Failing to start a child aborts the run once the
// running children have exited. A child that exits with an error is logged
// and reported after all children finish.
func runProcesses(ctx context.Context, opts Options, tasks []workerTask) error {
	sem := make(chan struct{}, opts.Processes)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}
		sem <- struct{}{}

		cmd := exec.CommandContext(ctx, opts.Executable, append([]string{"worker"}, task.args...)...)
		cmd.Env = append(os.Environ(), workerEnv+"=1")
		stderr := &bytes.Buffer{}
		cmd.Stderr = stderr
		if err := cmd.Start(); err != nil {
			<-sem
			wg.Wait()
			return fmt.Errorf("start worker for %s: %w", task.name, err)
		}

		log := opts.Logger.WithFields(logrus.Fields{"worker": i, "pid": cmd.Process.Pid, "file": task.name})
		log.Debug("worker started")

		wg.Add(1)
		go func(task workerTask) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := cmd.Wait(); err != nil {
				log.WithField("stderr", strings.TrimSpace(stderr.String())).Warnf("worker failed: %v", err)
				mu.Lock()
				failed = append(failed, fmt.Errorf("worker for %s: %w", task.name, err))
				mu.Unlock()
				return
			}
			if task.onDone != nil {
				task.onDone()
			}
		}(task)
	}
	wg.Wait()
	return errors.Join(failed...)
}
