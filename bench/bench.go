// Package bench runs a command while sampling its memory use.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

const megabyte = 1 << 20

// Result of one benchmarked command. RAM holds the resident memory in MB of
// the process and all its children, one sample per poll.
type Result struct {
	RAM      []float64
	Wall     time.Duration
	CPU      time.Duration
	ExitCode int
}

func (r Result) MaxRAM() float64 {
	var m float64
	for _, v := range r.RAM {
		m = max(m, v)
	}
	return m
}

type Options struct {
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Run starts argv and waits for it. A non-zero exit status is not an error:
// feature extractors fail on single files and still write their CSV. The
// returned error covers start failures and context cancellation.
func Run(ctx context.Context, argv []string, stdout, stderr io.Writer, opts Options) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("empty command")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", argv[0], err)
	}

	var (
		mu      sync.Mutex
		samples []float64
		wg      sync.WaitGroup
	)
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		proc, err := process.NewProcess(int32(cmd.Process.Pid))
		if err != nil {
			logger.Debug("cannot sample process", zap.Error(err))
			return
		}
		ticker := time.NewTicker(opts.PollInterval)
		defer ticker.Stop()
		for {
			if rss, ok := treeRSS(ctx, proc); ok {
				mu.Lock()
				samples = append(samples, float64(rss)/megabyte)
				mu.Unlock()
			}
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	waitErr := cmd.Wait()
	close(stop)
	wg.Wait()

	res := Result{Wall: time.Since(start), RAM: samples}
	if state := cmd.ProcessState; state != nil {
		res.CPU = state.UserTime() + state.SystemTime()
		res.ExitCode = state.ExitCode()
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, waitErr
	}
	if res.ExitCode != 0 {
		logger.Warn("command exited with error", zap.Strings("argv", argv), zap.Int("code", res.ExitCode))
	}
	return res, nil
}

// treeRSS sums the resident memory of proc and its descendants.
func treeRSS(ctx context.Context, proc *process.Process) (uint64, bool) {
	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, false
	}
	total := mem.RSS
	children, err := proc.ChildrenWithContext(ctx)
	if err != nil {
		return total, true
	}
	for _, child := range children {
		if rss, ok := treeRSS(ctx, child); ok {
			total += rss
		}
	}
	return total, true
}
