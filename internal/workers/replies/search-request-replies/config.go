// internal/workers/replies/search-request-replies/config.go
package searchrequestreplies

import (
	"time"

	"checkin-service/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// DefaultLimit applies when the job does not set a limit.
	DefaultLimit int
}

func LoadConfig(wcfg config.WorkerConfig, scfg config.SearchConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Config{
		Timeout:      timeout,
		DefaultLimit: scfg.DefaultLimit,
	}
}
