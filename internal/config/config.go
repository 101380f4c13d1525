// Package config handles simulator configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/quadsphere/internal/engine/terrain"
)

// Config holds all simulator settings.
type Config struct {
	Body       BodyConfig       `yaml:"body"`
	LOD        LODConfig        `yaml:"lod"`
	Workers    WorkersConfig    `yaml:"workers"`
	Simulation SimulationConfig `yaml:"simulation"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Export     ExportConfig     `yaml:"export"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// BodyConfig describes the celestial body the terrain wraps.
type BodyConfig struct {
	Name      string     `yaml:"name"`
	Radius    float64    `yaml:"radius"`
	Position  [3]float64 `yaml:"position"`
	AxialTilt float64    `yaml:"axial_tilt"` // degrees
	SpinRate  float64    `yaml:"spin_rate"`  // radians per tick
}

// LODConfig holds the subdivision settings.
type LODConfig struct {
	EdgeSubdivisions int     `yaml:"edge_subdivisions"` // binary subdivisions per patch edge
	HardLimitLevel   int     `yaml:"hard_limit_level"`  // deepest subdivision level
	RangeMultiplier  float64 `yaml:"range_multiplier"`  // root trigger distance = radius * this
	MergeMultiplier  float64 `yaml:"merge_multiplier"`  // merge when POIs are beyond parent trigger * this
	SyncGeneration   bool    `yaml:"sync_generation"`   // join every mesh task at the end of a tick
}

// WorkersConfig holds mesh generation concurrency settings.
type WorkersConfig struct {
	Count int `yaml:"count"` // 0 = GOMAXPROCS
}

// SimulationConfig holds the scripted camera run.
type SimulationConfig struct {
	Ticks         int           `yaml:"ticks"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	StartAltitude float64       `yaml:"start_altitude"`
	EndAltitude   float64       `yaml:"end_altitude"`
	OrbitSpeed    float64       `yaml:"orbit_speed"` // radians of longitude per tick
	Latitude      float64       `yaml:"latitude"`    // degrees
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty disables the endpoint
}

// ExportConfig holds output file settings.
type ExportConfig struct {
	MeshDump string `yaml:"mesh_dump"` // empty disables the dump
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Body: BodyConfig{
			Name:      "Earth",
			Radius:    6_371_000,
			AxialTilt: 23.44,
		},
		LOD: LODConfig{
			EdgeSubdivisions: 4,
			HardLimitLevel:   18,
			RangeMultiplier:  2.0,
			MergeMultiplier:  2.0,
			SyncGeneration:   true,
		},
		Workers: WorkersConfig{
			Count: 0,
		},
		Simulation: SimulationConfig{
			Ticks:         600,
			TickInterval:  0,
			StartAltitude: 20_000_000,
			EndAltitude:   100,
			OrbitSpeed:    0.0005,
			Latitude:      28.5,
		},
		Metrics: MetricsConfig{
			ListenAddr: "",
		},
		Export: ExportConfig{
			MeshDump: "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate rejects settings that would violate mesh or tree preconditions.
func (c *Config) Validate() error {
	var errs []error

	if c.Body.Radius <= 0 {
		errs = append(errs, fmt.Errorf("body.radius must be positive, got %g", c.Body.Radius))
	}
	if c.LOD.EdgeSubdivisions < 0 {
		errs = append(errs, fmt.Errorf("lod.edge_subdivisions must not be negative, got %d", c.LOD.EdgeSubdivisions))
	} else if c.LOD.EdgeSubdivisions > 16 || terrain.VertexCount(c.LOD.EdgeSubdivisions) > terrain.MaxVertices {
		errs = append(errs, fmt.Errorf("lod.edge_subdivisions %d: %w", c.LOD.EdgeSubdivisions, terrain.ErrTooManyVertices))
	}
	if c.LOD.HardLimitLevel < 0 || c.LOD.HardLimitLevel > 60 {
		errs = append(errs, fmt.Errorf("lod.hard_limit_level must be in [0, 60], got %d", c.LOD.HardLimitLevel))
	}
	if c.LOD.RangeMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("lod.range_multiplier must be positive, got %g", c.LOD.RangeMultiplier))
	}
	if c.LOD.MergeMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("lod.merge_multiplier must be positive, got %g", c.LOD.MergeMultiplier))
	}
	if c.Simulation.Ticks < 0 {
		errs = append(errs, fmt.Errorf("simulation.ticks must not be negative, got %d", c.Simulation.Ticks))
	}

	return errors.Join(errs...)
}
