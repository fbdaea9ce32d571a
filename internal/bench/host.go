package bench

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/pbnjay/memory"
)

// Host describes the machine the benchmark ran on.
type Host struct {
	CPU           string   `json:"cpu"`
	PhysicalCores int      `json:"physical_cores"`
	LogicalCores  int      `json:"logical_cores"`
	Features      []string `json:"features"`
	TotalMemory   uint64   `json:"total_memory"`
	HeapAlloc     uint64   `json:"heap_alloc"`
	OS            string   `json:"os"`
	Arch          string   `json:"arch"`
	GoMaxProcs    int      `json:"gomaxprocs"`
}

// features relevant to the GEMM and half-precision conversion paths.
var features = []struct {
	id   cpuid.FeatureID
	name string
}{
	{cpuid.AVX2, "avx2"},
	{cpuid.FMA3, "fma3"},
	{cpuid.F16C, "f16c"},
	{cpuid.AVX512F, "avx512f"},
	{cpuid.ASIMD, "asimd"},
	{cpuid.FPHP, "fphp"},
}

// DetectHost samples the current machine.
func DetectHost() Host {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	h := Host{
		CPU:           cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		TotalMemory:   memory.TotalMemory(),
		HeapAlloc:     ms.HeapAlloc,
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		GoMaxProcs:    runtime.GOMAXPROCS(0),
	}
	if h.CPU == "" {
		h.CPU = "unknown"
	}
	for _, f := range features {
		if cpuid.CPU.Supports(f.id) {
			h.Features = append(h.Features, f.name)
		}
	}
	return h
}
