package handler

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prepexam/prepexam-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const metricsInterval = 7 * time.Second

// SystemHandler streams process health to admins over SSE: Go runtime stats,
// host memory, and the depth of the session event queue. Deep host metrics
// belong to the platform's monitoring stack, not this service.
type SystemHandler struct {
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type systemMetrics struct {
	Timestamp     int64  `json:"timestamp"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	GoVersion     string `json:"go_version"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	NumGC      uint32 `json:"num_gc"`

	MemUsedBytes  uint64 `json:"mem_used_bytes"`
	MemTotalBytes uint64 `json:"mem_total_bytes"`

	QueueSessionEvents int64 `json:"queue_session_events"`
}

// SystemMetricsSSE godoc
// GET /api/admin/system/metrics
// Pushes a metrics sample on connect and then every interval until the admin
// disconnects.
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	h.log.Info().Msg("Admin attached to system metrics SSE")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	reqCtx := c.Request.Context()
	h.writeSample(c)

	for {
		select {
		case <-reqCtx.Done():
			h.log.Debug().Msg("Admin detached from system metrics SSE")
			return
		case <-ticker.C:
			h.writeSample(c)
		}
	}
}

func (h *SystemHandler) writeSample(c *gin.Context) {
	payload, err := json.Marshal(h.collect(c))
	if err != nil {
		return
	}
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}

func (h *SystemHandler) collect(c *gin.Context) systemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m := systemMetrics{
		Timestamp:     time.Now().Unix(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		HeapAlloc:     ms.HeapAlloc,
		HeapSys:       ms.Sys,
		NumGC:         ms.NumGC,
	}

	if total, available, err := readMemInfo(); err == nil && total > 0 {
		m.MemTotalBytes = total
		m.MemUsedBytes = total - available
	}

	ctx := c.Request.Context()
	if n, err := h.rdb.LLen(ctx, config.WorkerKey.SessionEventsQueue).Result(); err == nil {
		m.QueueSessionEvents = n
	}

	return m
}

// readMemInfo pulls MemTotal and MemAvailable from /proc/meminfo. Values come
// back in bytes; both are zero on non-Linux hosts.
func readMemInfo() (total, available uint64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			total = memInfoBytes(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			available = memInfoBytes(line)
		}
		if total > 0 && available > 0 {
			break
		}
	}
	return total, available, scanner.Err()
}

// memInfoBytes parses a "Key:   12345 kB" line into bytes.
func memInfoBytes(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	kb, _ := strconv.ParseUint(fields[1], 10, 64)
	return kb * 1024
}
