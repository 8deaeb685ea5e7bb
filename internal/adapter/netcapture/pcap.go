//go:build cgo

package netcapture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket/pcap"

	"github.com/user/linkcheck-service/internal/telemetry"
)

const (
	anyDevice   = "any"
	snapLen     = 64
	readTimeout = 100 * time.Millisecond
)

// PcapSource counts frames on the libpcap "any" pseudo-device. Only the
// original wire length of each frame is reported.
type PcapSource struct {
	device string
	handle *pcap.Handle
}

func NewPcapSource() *PcapSource {
	return &PcapSource{device: anyDevice}
}

func (s *PcapSource) Open() error {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return fmt.Errorf("%w: %w", telemetry.ErrNoInterface, err)
	}
	found := false
	for _, d := range devs {
		if d.Name == s.device {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: device %q not available", telemetry.ErrNoInterface, s.device)
	}

	handle, err := pcap.OpenLive(s.device, snapLen, false, readTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", telemetry.ErrNoInterface, err)
	}
	s.handle = handle
	return nil
}

func (s *PcapSource) Run(ctx context.Context, observe func(n int)) error {
	if s.handle == nil {
		return errors.New("pcap source not opened")
	}
	for ctx.Err() == nil {
		_, ci, err := s.handle.ZeroCopyReadPacketData()
		switch {
		case err == nil:
			observe(ci.Length)
		case errors.Is(err, pcap.NextErrorTimeoutExpired):
		default:
			return fmt.Errorf("read frame: %w", err)
		}
	}
	return ctx.Err()
}

func (s *PcapSource) Close() error {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	return nil
}
