package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/mftqc/internal/geometry"
	"github.com/banshee-data/mftqc/internal/mapping"
)

// Task levels select which monitor objects a digit task publishes.
const (
	TaskLevelChipMaps      = 0
	TaskLevelChipMapsAlt   = 1
	TaskLevelPixelMaps     = 2
	TaskLevelOccupancy     = 3
	TaskLevelAll           = 4
	maxTaskLevel           = TaskLevelAll
	maxConfigFileSizeBytes = 1 * 1024 * 1024 // 1MB
)

// TaskConfig is the configuration of one QC task instance. Fields omitted
// from the JSON file fall back to the defaults returned by the Get*
// methods, so partial configs are safe.
type TaskConfig struct {
	FLP           *int    `json:"flp,omitempty"`
	TaskLevel     *int    `json:"task_level,omitempty"`
	GeometryPath  *string `json:"geometry_path,omitempty"` // empty means the embedded table
	ProbeChip     *int    `json:"probe_chip,omitempty"`
	ProbeSensor   *int    `json:"probe_sensor,omitempty"` // sensor watched by the cluster check
	CycleDigits   *int    `json:"cycle_digits,omitempty"`
	PixelBinWidth *int    `json:"pixel_bin_width,omitempty"` // pixels per pixel-map bin side
	RunNumber     *int    `json:"run_number,omitempty"`
	DBPath        *string `json:"db_path,omitempty"`
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

// EmptyTaskConfig returns a TaskConfig with all fields set to nil.
func EmptyTaskConfig() *TaskConfig {
	return &TaskConfig{}
}

// DefaultTaskConfig returns a TaskConfig with every field set to its default.
func DefaultTaskConfig() *TaskConfig {
	return &TaskConfig{
		FLP:           ptrInt(0),
		TaskLevel:     ptrInt(TaskLevelAll),
		GeometryPath:  ptrString(""),
		ProbeChip:     ptrInt(400),
		ProbeSensor:   ptrInt(398),
		CycleDigits:   ptrInt(10000),
		PixelBinWidth: ptrInt(8),
		RunNumber:     ptrInt(0),
		DBPath:        ptrString("mftqc.db"),
	}
}

// LoadTaskConfig loads a TaskConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadTaskConfig(path string) (*TaskConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSizeBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSizeBytes)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTaskConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid. Partition and
// task level errors wrap mapping.ErrInvalidParameter.
func (c *TaskConfig) Validate() error {
	if c.FLP != nil {
		if err := mapping.FLP(*c.FLP).Validate(); err != nil {
			return fmt.Errorf("flp: %w", err)
		}
	}

	if c.TaskLevel != nil {
		if *c.TaskLevel < 0 || *c.TaskLevel > maxTaskLevel {
			return fmt.Errorf("task_level must be between 0 and %d, got %d: %w", maxTaskLevel, *c.TaskLevel, mapping.ErrInvalidParameter)
		}
	}

	if c.ProbeChip != nil {
		if *c.ProbeChip < 0 || *c.ProbeChip >= geometry.NumChips {
			return fmt.Errorf("probe_chip must be between 0 and %d, got %d: %w", geometry.NumChips-1, *c.ProbeChip, mapping.ErrInvalidParameter)
		}
	}

	if c.ProbeSensor != nil {
		if *c.ProbeSensor < 0 || *c.ProbeSensor >= geometry.NumChips {
			return fmt.Errorf("probe_sensor must be between 0 and %d, got %d: %w", geometry.NumChips-1, *c.ProbeSensor, mapping.ErrInvalidParameter)
		}
	}

	if c.CycleDigits != nil && *c.CycleDigits <= 0 {
		return fmt.Errorf("cycle_digits must be positive, got %d", *c.CycleDigits)
	}

	if c.PixelBinWidth != nil {
		if _, err := mapping.PixelMapShapeWithWidth(*c.PixelBinWidth); err != nil {
			return fmt.Errorf("pixel_bin_width: %w", err)
		}
	}

	if c.RunNumber != nil && *c.RunNumber < 0 {
		return fmt.Errorf("run_number must be non-negative, got %d", *c.RunNumber)
	}

	return nil
}

// GetFLP returns the readout partition or the default.
func (c *TaskConfig) GetFLP() mapping.FLP {
	if c.FLP == nil {
		return 0
	}
	return mapping.FLP(*c.FLP)
}

// GetTaskLevel returns the task_level value or the default.
func (c *TaskConfig) GetTaskLevel() int {
	if c.TaskLevel == nil {
		return TaskLevelAll
	}
	return *c.TaskLevel
}

// GetGeometryPath returns the geometry table path. Empty selects the
// embedded table.
func (c *TaskConfig) GetGeometryPath() string {
	if c.GeometryPath == nil {
		return ""
	}
	return *c.GeometryPath
}

// GetProbeChip returns the chip inspected by the checks.
func (c *TaskConfig) GetProbeChip() int {
	if c.ProbeChip == nil {
		return 400
	}
	return *c.ProbeChip
}

// GetProbeSensor returns the sensor inspected by the cluster check.
// The default 398 is the sensor behind bin 400 of a sensor histogram
// filled at sensor+1.
func (c *TaskConfig) GetProbeSensor() int {
	if c.ProbeSensor == nil {
		return 398
	}
	return *c.ProbeSensor
}

// GetCycleDigits returns the number of records per QC cycle.
func (c *TaskConfig) GetCycleDigits() int {
	if c.CycleDigits == nil {
		return 10000
	}
	return *c.CycleDigits
}

// GetPixelBinWidth returns the side of a pixel-map bin in pixels.
func (c *TaskConfig) GetPixelBinWidth() int {
	if c.PixelBinWidth == nil {
		return 8
	}
	return *c.PixelBinWidth
}

// GetRunNumber returns the run_number value or the default.
func (c *TaskConfig) GetRunNumber() int {
	if c.RunNumber == nil {
		return 0
	}
	return *c.RunNumber
}

// GetDBPath returns the quality store path.
func (c *TaskConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "mftqc.db"
	}
	return *c.DBPath
}

// ShowChipMaps reports whether the integrated chip hit maps are published.
func (c *TaskConfig) ShowChipMaps() bool {
	l := c.GetTaskLevel()
	return l == TaskLevelChipMaps || l == TaskLevelChipMapsAlt || l == TaskLevelAll
}

// ShowPixelMaps reports whether the per-chip pixel maps are published.
func (c *TaskConfig) ShowPixelMaps() bool {
	l := c.GetTaskLevel()
	return l == TaskLevelPixelMaps || l == TaskLevelAll
}

// ShowOccupancy reports whether the occupancy summaries are published.
func (c *TaskConfig) ShowOccupancy() bool {
	l := c.GetTaskLevel()
	return l == TaskLevelOccupancy || l == TaskLevelAll
}
