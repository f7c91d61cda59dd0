package process

import (
	"context"
	"fmt"
	"net"
	goruntime "runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	psprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
	"github.com/marmos91/corevisor/pkg/coreapp"
)

// Stats samples the child process. Network counters are host-wide since a
// plain child process shares the host network namespace.
func (r *Runtime) Stats(ctx context.Context) (*coreapp.Stats, error) {
	pid := r.pid()
	if pid == 0 {
		return nil, fmt.Errorf("core app is not running: %w", models.ErrStatsUnavailable)
	}

	proc, err := psprocess.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStatsUnavailable, err)
	}

	stats := &coreapp.Stats{}

	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = round2(cpu)
	}

	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStatsUnavailable, err)
	}
	stats.MemoryUsage = memInfo.RSS

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm.Total > 0 {
		stats.MemoryLimit = vm.Total
		stats.MemoryPercent = round2(float64(memInfo.RSS) / float64(vm.Total) * 100)
	}

	if io, err := proc.IOCountersWithContext(ctx); err == nil {
		stats.BlkRead = io.ReadBytes
		stats.BlkWrite = io.WriteBytes
	}

	if counters, err := psnet.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		stats.NetworkRx = counters[0].BytesRecv
		stats.NetworkTx = counters[0].BytesSent
	}

	return stats, nil
}

// Identity returns the configured machine and arch, falling back to the
// host platform, and the first non-loopback IPv4 address.
func (r *Runtime) Identity(ctx context.Context) coreapp.Identity {
	id := coreapp.Identity{
		Machine: r.cfg.Machine,
		Arch:    r.cfg.Arch,
	}
	if id.Arch == "" {
		id.Arch = goruntime.GOARCH
	}
	if id.Machine == "" {
		if info, err := host.InfoWithContext(ctx); err == nil {
			id.Machine = info.Platform
		}
	}
	id.IPAddress = hostIPv4(ctx)
	return id
}

func hostIPv4(ctx context.Context) string {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		logger.DebugCtx(ctx, "Failed to list interfaces", logger.Err(err))
		return ""
	}
	for _, iface := range ifaces {
		if hasFlag(iface.Flags, "loopback") || !hasFlag(iface.Flags, "up") {
			continue
		}
		for _, addr := range iface.Addrs {
			ip, _, err := net.ParseCIDR(addr.Addr)
			if err != nil {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return ""
}

func hasFlag(flags []string, name string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
