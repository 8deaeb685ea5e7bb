package netcapture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/linkcheck-service/internal/telemetry"
)

const netDevHeader = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
`

func writeNetDev(t *testing.T, root string, rxLo, txLo, rxEth, txEth uint64) {
	t.Helper()
	body := netDevHeader +
		fmt.Sprintf("    lo: %d 10 0 0 0 0 0 0 %d 10 0 0 0 0 0 0\n", rxLo, txLo) +
		fmt.Sprintf("  eth0: %d 20 0 0 0 0 0 0 %d 20 0 0 0 0 0 0\n", rxEth, txEth)
	tmp := filepath.Join(root, "net", "dev.tmp")
	if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
		t.Fatalf("write net/dev: %v", err)
	}
	// rename so concurrent readers never see a partial file
	if err := os.Rename(tmp, filepath.Join(root, "net", "dev")); err != nil {
		t.Fatalf("rename net/dev: %v", err)
	}
}

func newProcRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "net"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return root
}

func TestProcfsSource_ReportsDeltas(t *testing.T) {
	root := newProcRoot(t)
	writeNetDev(t, root, 100, 100, 1000, 500)

	s := NewProcfsSource(root, time.Millisecond)
	if err := s.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	var observed []int
	observe := func(n int) { observed = append(observed, n) }

	writeNetDev(t, root, 150, 150, 3000, 700)
	if err := s.poll(observe); err != nil {
		t.Fatalf("poll() error = %v", err)
	}
	// no change: nothing reported
	if err := s.poll(observe); err != nil {
		t.Fatalf("poll() error = %v", err)
	}

	if len(observed) != 1 || observed[0] != 2300 {
		t.Errorf("observed = %v, want [2300]", observed)
	}
}

func TestProcfsSource_CounterReset(t *testing.T) {
	root := newProcRoot(t)
	writeNetDev(t, root, 0, 0, 5000, 5000)

	s := NewProcfsSource(root, time.Millisecond)
	if err := s.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	var observed []int
	writeNetDev(t, root, 0, 0, 10, 10)
	if err := s.poll(func(n int) { observed = append(observed, n) }); err != nil {
		t.Fatalf("poll() error = %v", err)
	}
	if len(observed) != 0 {
		t.Errorf("observed = %v after counter reset, want none", observed)
	}
}

func TestProcfsSource_OpenWithoutNetDev(t *testing.T) {
	s := NewProcfsSource(t.TempDir(), time.Millisecond)
	if err := s.Open(); !errors.Is(err, telemetry.ErrNoInterface) {
		t.Errorf("Open() error = %v, want ErrNoInterface", err)
	}
}

func TestProcfsSource_FeedsMonitor(t *testing.T) {
	root := newProcRoot(t)
	writeNetDev(t, root, 0, 0, 0, 0)

	s := NewProcfsSource(root, time.Millisecond)
	m := telemetry.New(s, telemetry.WithInterval(20*time.Millisecond))
	if err := m.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	var total uint64
	deadline := time.Now().Add(2 * time.Second)
	for m.CurrentRate() == 0 && time.Now().Before(deadline) {
		total += 4096
		writeNetDev(t, root, 0, 0, total, 0)
		time.Sleep(5 * time.Millisecond)
	}
	if m.CurrentRate() == 0 {
		t.Error("monitor never published a rate from procfs")
	}
}
