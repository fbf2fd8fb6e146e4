package system

import (
	"time"
)

// Snapshot is the metrics document shown on the System page and sent to
// the anomaly analysis
type Snapshot struct {
	Timestamp time.Time   `json:"timestamp"`
	Host      HostInfo    `json:"host"`
	CPU       CPUInfo     `json:"cpu"`
	Memory    MemoryInfo  `json:"memory"`
	Disk      DiskInfo    `json:"disk"`
	Network   NetworkInfo `json:"network"`
	Home      HomeStats   `json:"home"`
}

// HostInfo identifies the machine running the panel
type HostInfo struct {
	Hostname    string `json:"hostname"`
	OS          string `json:"os"`
	Platform    string `json:"platform"`
	Arch        string `json:"arch"`
	Version     string `json:"version"`
	Uptime      uint64 `json:"uptime_seconds"`
	UptimeLabel string `json:"uptime"`
}

// CPUInfo represents CPU usage
type CPUInfo struct {
	Usage       float64   `json:"usage"`
	LoadAverage []float64 `json:"load_average"`
	Cores       int       `json:"cores"`
}

// MemoryInfo represents memory usage
type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
	Label       string  `json:"label"`
}

// DiskInfo represents usage of the filesystem holding the database
type DiskInfo struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
	Label       string  `json:"label"`
}

// NetworkInfo sums traffic over all interfaces
type NetworkInfo struct {
	BytesSent uint64 `json:"bytes_sent"`
	BytesRecv uint64 `json:"bytes_recv"`
	Errors    uint64 `json:"errors"`
	Drops     uint64 `json:"drops"`
	SentLabel string `json:"sent"`
	RecvLabel string `json:"received"`
}

// HomeStats summarizes device and automation state
type HomeStats struct {
	Devices           int            `json:"devices"`
	ActiveDevices     int            `json:"active_devices"`
	UnassignedDevices int            `json:"unassigned_devices"`
	Rooms             int            `json:"rooms"`
	LightsOn          int            `json:"lights_on"`
	LightsTotal       int            `json:"lights_total"`
	Automations       int            `json:"automations"`
	ActiveAutomations int            `json:"active_automations"`
	DevicesByCategory map[string]int `json:"devices_by_category"`
	UnlockedLocks     []string       `json:"unlocked_locks"`
	SecurityDevices   []string       `json:"security_devices"`
}
