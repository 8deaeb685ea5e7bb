//go:build !cgo

package netcapture

import (
	"context"
	"fmt"

	"github.com/user/linkcheck-service/internal/telemetry"
)

// PcapSource is unavailable in builds without cgo; use the procfs source.
type PcapSource struct{}

func NewPcapSource() *PcapSource { return &PcapSource{} }

func (s *PcapSource) Open() error {
	return fmt.Errorf("%w: built without cgo, libpcap unavailable", telemetry.ErrNoInterface)
}

func (s *PcapSource) Run(ctx context.Context, _ func(int)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *PcapSource) Close() error { return nil }
