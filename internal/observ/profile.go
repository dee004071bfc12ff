package observ

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	rtrace "runtime/trace"
	"sync"
)

// ProfileConfig names the files a Profiler writes; empty paths are skipped.
type ProfileConfig struct {
	CPU          string
	Heap         string
	RuntimeTrace string
}

func (c ProfileConfig) Enabled() bool {
	return c.CPU != "" || c.Heap != "" || c.RuntimeTrace != ""
}

// Profiler runs the Go runtime profilers around one command. Stop is safe
// to call more than once.
type Profiler struct {
	cfg      ProfileConfig
	cpuFile  *os.File
	traceOut *os.File
	once     sync.Once
	stopErr  error
}

// StartProfiler starts the CPU profile and the runtime trace requested by
// cfg. The heap profile is written by Stop.
func StartProfiler(cfg ProfileConfig) (*Profiler, error) {
	p := &Profiler{cfg: cfg}
	if cfg.CPU != "" {
		f, err := os.Create(cfg.CPU)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("start cpu profile: %w", err)
		}
		p.cpuFile = f
	}
	if cfg.RuntimeTrace != "" {
		f, err := os.Create(cfg.RuntimeTrace)
		if err == nil {
			if err = rtrace.Start(f); err != nil {
				_ = f.Close()
			}
		}
		if err != nil {
			p.stopCPU()
			return nil, fmt.Errorf("start runtime trace: %w", err)
		}
		p.traceOut = f
	}
	return p, nil
}

func (p *Profiler) stopCPU() error {
	if p.cpuFile == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := p.cpuFile.Close()
	p.cpuFile = nil
	return err
}

// Stop ends the running profiles and writes the heap profile.
func (p *Profiler) Stop() error {
	p.once.Do(func() {
		var errs []error
		if p.traceOut != nil {
			rtrace.Stop()
			errs = append(errs, p.traceOut.Close())
		}
		errs = append(errs, p.stopCPU())
		if p.cfg.Heap != "" {
			errs = append(errs, writeHeap(p.cfg.Heap))
		}
		p.stopErr = errors.Join(errs...)
	})
	return p.stopErr
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
