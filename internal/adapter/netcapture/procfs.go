package netcapture

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/procfs"

	"github.com/user/linkcheck-service/internal/telemetry"
)

// ProcfsSource reports growth of the aggregate interface byte counters in
// /proc/net/dev. It needs no privileges but only sees traffic at poll
// granularity.
type ProcfsSource struct {
	mountPoint string
	interval   time.Duration

	fs   procfs.FS
	last uint64
}

func NewProcfsSource(mountPoint string, interval time.Duration) *ProcfsSource {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	if interval <= 0 {
		interval = telemetry.DefaultInterval
	}
	return &ProcfsSource{mountPoint: mountPoint, interval: interval}
}

func (s *ProcfsSource) Open() error {
	fs, err := procfs.NewFS(s.mountPoint)
	if err != nil {
		return fmt.Errorf("%w: %w", telemetry.ErrNoInterface, err)
	}
	s.fs = fs

	total, err := s.read()
	if err != nil {
		return fmt.Errorf("%w: %w", telemetry.ErrNoInterface, err)
	}
	s.last = total
	return nil
}

func (s *ProcfsSource) Run(ctx context.Context, observe func(n int)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.poll(observe); err != nil {
				return err
			}
		}
	}
}

func (s *ProcfsSource) Close() error { return nil }

func (s *ProcfsSource) poll(observe func(n int)) error {
	total, err := s.read()
	if err != nil {
		return err
	}
	// counters reset when an interface goes away
	if total > s.last {
		observe(int(total - s.last))
	}
	s.last = total
	return nil
}

func (s *ProcfsSource) read() (uint64, error) {
	dev, err := s.fs.NetDev()
	if err != nil {
		return 0, fmt.Errorf("read net/dev: %w", err)
	}
	t := dev.Total()
	return t.RxBytes + t.TxBytes, nil
}
