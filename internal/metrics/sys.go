package metrics

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
)

// Health represents real-time process and storage metrics.
type Health struct {
	Status       string `json:"status"`
	AllocMB      uint64 `json:"alloc_mb"`
	TotalAllocMB uint64 `json:"total_alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	Goroutines   int    `json:"goroutines"`
	DataBytes    uint64 `json:"data_bytes"`
	DataSize     string `json:"data_size"`
}

// ReadHealth collects health data. dataPath may be a directory or a single file.
func ReadHealth(dataPath string) Health {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	size := pathSize(dataPath)
	return Health{
		Status:       "ok",
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		DataBytes:    size,
		DataSize:     humanize.IBytes(size),
	}
}

// HealthHandler serves ReadHealth as JSON.
func HealthHandler(dataPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ReadHealth(dataPath))
	})
}

func pathSize(path string) uint64 {
	var size uint64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += uint64(info.Size())
		}
		return nil
	})
	return size
}
