// Package hostinfo answers the display-only system queries (CPU/GPU model,
// memory, load). These are independent read-only snapshots with no
// interaction with the EC protocol.
package hostinfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Hardware identifies the machine for the UI header.
type Hardware struct {
	CPUModel string `json:"cpu_model"`
	GPUModel string `json:"gpu_model"`
}

// Usage is a point-in-time memory/load reading.
type Usage struct {
	MemTotalKB     uint64  `json:"mem_total_kb"`
	MemAvailableKB uint64  `json:"mem_available_kb"`
	Load1          float64 `json:"load1"`
}

// lspciOutput is swapped in tests.
var lspciOutput = func() (string, error) {
	out, err := exec.Command("lspci").Output()
	return string(out), err
}

// ReadHardware never fails; unreadable sources fall back to generic names.
func ReadHardware() Hardware {
	hw := Hardware{CPUModel: "Unknown CPU", GPUModel: "Discrete Graphics"}

	if f, err := os.Open("/proc/cpuinfo"); err == nil {
		if model := cpuModelFrom(f); model != "" {
			hw.CPUModel = model
		}
		f.Close()
	}
	if out, err := lspciOutput(); err == nil {
		if model := gpuModelFrom(out); model != "" {
			hw.GPUModel = model
		}
	}
	return hw
}

func cpuModelFrom(r io.Reader) string {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if ok && strings.TrimSpace(key) == "model name" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// gpuModelFrom scans lspci output for VGA/3D controllers, preferring a
// discrete NVIDIA/AMD adapter over an integrated one. The clean model name
// usually sits inside the trailing brackets.
func gpuModelFrom(out string) string {
	var model string
	for _, line := range strings.Split(out, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "vga") && !strings.Contains(lower, "3d controller") {
			continue
		}
		_, desc, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		name := desc
		if open := strings.LastIndex(desc, "["); open >= 0 {
			if end := strings.LastIndex(desc, "]"); end > open {
				name = strings.TrimSpace(desc[open+1 : end])
			}
		}
		if strings.Contains(lower, "nvidia") || strings.Contains(lower, "amd") || strings.Contains(lower, "radeon") {
			return name
		}
		if model == "" {
			model = name
		}
	}
	return model
}

// ReadUsage reads /proc/meminfo and /proc/loadavg.
func ReadUsage() (Usage, error) {
	var u Usage

	mem, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return u, fmt.Errorf("read meminfo: %w", err)
	}
	u.MemTotalKB, u.MemAvailableKB = memFrom(string(mem))

	load, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return u, fmt.Errorf("read loadavg: %w", err)
	}
	u.Load1 = loadFrom(string(load))
	return u, nil
}

func memFrom(s string) (total, available uint64) {
	for _, line := range strings.Split(s, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(val)
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "MemTotal":
			total = n
		case "MemAvailable":
			available = n
		}
	}
	return total, available
}

func loadFrom(s string) float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	load, _ := strconv.ParseFloat(fields[0], 64)
	return load
}
