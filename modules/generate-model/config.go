package generatemodel

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Temp artifact names. Fixed names are safe because at most one run is
// active per process.
const (
	tempImageName = "mpx_generated_image.png"
	tempModelName = "mpx_generated_model.glb"
)

// Config - workflow tunables
type Config struct {
	TickInterval         time.Duration // poller scheduling tick
	PollThrottle         time.Duration // minimum gap between remote status checks
	MaxPollsPerPhase     int           // safety bound per phase, 0 disables
	ImageDownloadTimeout time.Duration
	ModelDownloadTimeout time.Duration
}

var workflowConfig *Config

// LoadWorkflowConfig - defaults with env overrides for the polling knobs
func LoadWorkflowConfig() *Config {
	if workflowConfig != nil {
		return workflowConfig
	}

	throttle := 3 * time.Second
	if secStr := os.Getenv("MPX_POLL_THROTTLE_SECONDS"); secStr != "" {
		if sec, err := strconv.Atoi(secStr); err == nil && sec > 0 {
			throttle = time.Duration(sec) * time.Second
		}
	}

	// 120 polls at the default throttle bounds a phase to about six minutes
	maxPolls := 120
	if capStr := os.Getenv("MPX_MAX_POLLS_PER_PHASE"); capStr != "" {
		if parsed, err := strconv.Atoi(capStr); err == nil && parsed >= 0 {
			maxPolls = parsed
		}
	}

	workflowConfig = &Config{
		TickInterval:         500 * time.Millisecond,
		PollThrottle:         throttle,
		MaxPollsPerPhase:     maxPolls,
		ImageDownloadTimeout: 30 * time.Second,
		ModelDownloadTimeout: 60 * time.Second,
	}

	log.Printf("✅ [GenerateModel] Workflow config - throttle: %s, max polls/phase: %d", throttle, maxPolls)
	return workflowConfig
}
