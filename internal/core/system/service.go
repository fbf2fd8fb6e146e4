package system

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/pkg/version"
)

// HomeReader is the read side of the home service
type HomeReader interface {
	ListDevices(ctx context.Context) ([]*models.Device, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)
	ListAutomations(ctx context.Context) ([]*models.Automation, error)
}

// Service collects host and home metrics
type Service struct {
	home           HomeReader
	logger         *logrus.Logger
	diskPath       string
	sampleInterval time.Duration
	now            func() time.Time
}

// NewService creates a collector. diskPath selects the filesystem to report,
// normally the one holding the database.
func NewService(home HomeReader, diskPath string, logger *logrus.Logger) *Service {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Service{
		home:           home,
		logger:         logger,
		diskPath:       diskPath,
		sampleInterval: 200 * time.Millisecond,
		now:            time.Now,
	}
}

// Snapshot gathers current metrics. Host metrics are best effort: a reading
// that fails is logged and left zero. Only a failure to read the home state
// is returned.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	stats, err := s.homeStats(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Timestamp: s.now().UTC(),
		Home:      *stats,
	}
	snap.Host = s.hostInfo(ctx)
	snap.CPU = s.cpuInfo(ctx)
	snap.Memory = s.memoryInfo(ctx)
	snap.Disk = s.diskInfo(ctx)
	snap.Network = s.networkInfo(ctx)
	return snap, nil
}

func (s *Service) hostInfo(ctx context.Context) HostInfo {
	info := HostInfo{Arch: runtime.GOARCH, Version: version.GetVersion()}
	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to get host info")
		return info
	}
	info.Hostname = hostInfo.Hostname
	info.OS = hostInfo.OS
	info.Platform = hostInfo.Platform
	info.Uptime = hostInfo.Uptime
	info.UptimeLabel = strings.TrimSpace(humanize.RelTime(s.now().Add(-time.Duration(hostInfo.Uptime)*time.Second), s.now(), "", ""))
	return info
}

func (s *Service) cpuInfo(ctx context.Context) CPUInfo {
	var info CPUInfo
	if percent, err := cpu.PercentWithContext(ctx, s.sampleInterval, false); err != nil {
		s.logger.WithError(err).Warn("Failed to get CPU usage")
	} else if len(percent) > 0 {
		info.Usage = percent[0]
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.Cores = cores
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		s.logger.WithError(err).Debug("Failed to get load average")
	} else {
		info.LoadAverage = []float64{avg.Load1, avg.Load5, avg.Load15}
	}
	return info
}

func (s *Service) memoryInfo(ctx context.Context) MemoryInfo {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to get memory info")
		return MemoryInfo{}
	}
	return MemoryInfo{
		Total:       vm.Total,
		Used:        vm.Used,
		UsedPercent: vm.UsedPercent,
		Label:       humanize.Bytes(vm.Used) + " of " + humanize.Bytes(vm.Total),
	}
}

func (s *Service) diskInfo(ctx context.Context) DiskInfo {
	usage, err := disk.UsageWithContext(ctx, s.diskPath)
	if err != nil {
		s.logger.WithError(err).WithField("path", s.diskPath).Warn("Failed to get disk usage")
		return DiskInfo{Path: s.diskPath}
	}
	return DiskInfo{
		Path:        usage.Path,
		Total:       usage.Total,
		Used:        usage.Used,
		UsedPercent: usage.UsedPercent,
		Label:       humanize.Bytes(usage.Used) + " of " + humanize.Bytes(usage.Total),
	}
}

func (s *Service) networkInfo(ctx context.Context) NetworkInfo {
	counters, err := psnet.IOCountersWithContext(ctx, false)
	if err != nil || len(counters) == 0 {
		if err != nil {
			s.logger.WithError(err).Warn("Failed to get network counters")
		}
		return NetworkInfo{}
	}
	total := counters[0]
	return NetworkInfo{
		BytesSent: total.BytesSent,
		BytesRecv: total.BytesRecv,
		Errors:    total.Errin + total.Errout,
		Drops:     total.Dropin + total.Dropout,
		SentLabel: humanize.Bytes(total.BytesSent),
		RecvLabel: humanize.Bytes(total.BytesRecv),
	}
}

func (s *Service) homeStats(ctx context.Context) (*HomeStats, error) {
	devices, err := s.home.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.home.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	automations, err := s.home.ListAutomations(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(devices, rooms, automations), nil
}

func summarize(devices []*models.Device, rooms []*models.Room, automations []*models.Automation) *HomeStats {
	stats := &HomeStats{
		Devices:           len(devices),
		Rooms:             len(rooms),
		Automations:       len(automations),
		DevicesByCategory: make(map[string]int),
		UnlockedLocks:     []string{},
		SecurityDevices:   []string{},
	}

	for _, d := range devices {
		stats.DevicesByCategory[string(d.Category)]++
		if d.Active {
			stats.ActiveDevices++
		}
		if d.RoomID == "" {
			stats.UnassignedDevices++
		}
		switch d.Category {
		case models.CategoryLock:
			if !d.Active {
				stats.UnlockedLocks = append(stats.UnlockedLocks, d.Name)
			}
		case models.CategorySecurity:
			stats.SecurityDevices = append(stats.SecurityDevices, d.Name+": "+d.Status)
		}
	}
	for _, r := range rooms {
		stats.LightsOn += r.LightsOn
		stats.LightsTotal += r.LightsTotal
	}
	for _, a := range automations {
		if a.Active {
			stats.ActiveAutomations++
		}
	}

	sort.Strings(stats.UnlockedLocks)
	sort.Strings(stats.SecurityDevices)
	return stats
}
