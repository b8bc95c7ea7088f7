// Package system samples host resource usage for status reports.
package system

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// GetCPUUsage returns the current CPU usage as a percentage
func GetCPUUsage() (float64, error) {
	percentages, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("could not get CPU usage")
	}
	return percentages[0], nil
}

// GetMemoryUsage returns the used and total host memory in bytes and the
// used percentage.
func GetMemoryUsage() (used, total uint64, percent float64, err error) {
	virtualMem, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, 0, err
	}
	return virtualMem.Used, virtualMem.Total, virtualMem.UsedPercent, nil
}

// Snapshot is one sample of host and process usage.
type Snapshot struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryTotal   uint64  `json:"memory_total"`
	HeapAlloc     uint64  `json:"heap_alloc"`
	Goroutines    int     `json:"goroutines"`
}

// Sample collects a Snapshot. Host probes that fail leave their fields zero
// and are reported in err; process fields are always filled.
func Sample() (Snapshot, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s := Snapshot{HeapAlloc: m.HeapAlloc, Goroutines: runtime.NumGoroutine()}

	cpuPercent, cpuErr := GetCPUUsage()
	if cpuErr == nil {
		s.CPUPercent = cpuPercent
	}
	used, total, percent, memErr := GetMemoryUsage()
	if memErr == nil {
		s.MemoryUsed, s.MemoryTotal, s.MemoryPercent = used, total, percent
	}

	if cpuErr != nil || memErr != nil {
		return s, errors.Join(cpuErr, memErr)
	}
	return s, nil
}
