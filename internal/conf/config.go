// config.go: settings for the terraseries analysis pipeline. Defines the
// Settings struct and the functions that load and persist it through viper.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// RotationType defines the log rotation strategy.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig contains settings for a rotated log file.
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // path to log file
	Rotation RotationType // rotation type
	MaxSize  int64        // max size in bytes for size rotation
}

// MainSettings contains top-level application settings.
type MainSettings struct {
	Name string    // name of this node, used in results and logs
	Log  LogConfig // main log settings
}

// ArchiveCacheSettings controls caching of archive catalogue queries.
type ArchiveCacheSettings struct {
	Enabled    bool // true to cache count/list queries
	TTLMinutes int  // entry lifetime
}

// ArchiveSettings configures the remote image-archive client.
type ArchiveSettings struct {
	Endpoint       string               // base URL of the archive REST API
	APIKey         string               // API key, empty for anonymous access
	TimeoutSeconds int                  // per-call timeout
	Cache          ArchiveCacheSettings // catalogue query cache
}

// PlannerSettings holds the processing-strategy policy constants. These are
// policy, not magic numbers: the remote service enforces a hard per-call
// pixel ceiling and the planner must never knowingly exceed it.
type PlannerSettings struct {
	AnnualSpanYears  float64 // span above which annual compositing is used
	ChunkedSpanYears float64 // span above which chunked annual processing is used
	AnnualImageCount int     // candidate count above which annual compositing is used
	ChunkYears       int     // window size for chunked processing
	DirectSampleCap  int     // max images sampled by the direct strategy

	AreaMediumKm2 float64 // region area above which medium resolution is used
	AreaCoarseKm2 float64 // region area above which coarse resolution is used

	FineScale    float64 // meters per pixel, small regions
	MediumScale  float64
	CoarseScale  float64
	FinePixels   int64 // max-pixel budget per reduction, small regions
	MediumPixels int64
	CoarsePixels int64
}

// CoverageSettings configures the footprint coverage filter.
type CoverageSettings struct {
	OpticalThreshold float64 // min footprint/region overlap percent, optical
	RadarThreshold   float64 // min overlap percent, radar swaths
}

// MaskingSettings holds the effective cloud-cover strictness factors.
// The reported cloud cover is scaled by these for display purposes; the raw
// archive-reported value is always preserved alongside.
type MaskingSettings struct {
	BasicFactor  float64
	StrictFactor float64
}

// TelemetrySettings contains settings for the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to expose metrics over HTTP
	Listen  string // listen address and port
}

// Settings is the root configuration for terraseries.
type Settings struct {
	Debug bool // true to enable debug behavior

	Main      MainSettings
	Archive   ArchiveSettings
	Planner   PlannerSettings
	Coverage  CoverageSettings
	Masking   MaskingSettings
	Telemetry TelemetrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	once             sync.Once
)

// Load reads the configuration into a new Settings instance and makes it the
// current one.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the current settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper sets up config name, search paths and defaults, and reads the
// config file, creating one from the embedded defaults when missing.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first config
// path and reads it back in.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// SaveSettings writes the current settings back to the configuration file.
func SaveSettings() error {
	settingsMutex.RLock()
	settingsCopy := *settingsInstance
	settingsMutex.RUnlock()

	data, err := yaml.Marshal(&settingsCopy)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}

	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		configPath = filepath.Join(configPaths[0], "config.yaml")
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPaths returns the configuration search paths: the working
// directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}
	configDir, err := os.UserConfigDir()
	if err == nil {
		paths = append(paths, filepath.Join(configDir, "terraseries"))
	}
	return paths, nil
}
