package config

import "flag"

var (
	flagConfig           = flag.String("config", "", "Path to config file")
	flagDebug            = flag.Bool("debug", false, "Enable debug logging")
	flagEdgeSubdivisions = flag.Int("edge-subdivisions", -1, "Binary subdivisions per patch edge")
	flagMaxLevel         = flag.Int("max-level", -1, "Hard limit on subdivision level")
	flagTicks            = flag.Int("ticks", 0, "Number of simulation ticks")
	flagMetricsAddr      = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flagDump             = flag.String("dump", "", "Write the final meshes to this file")
	flagSaveConfig       = flag.Bool("save-config", false, "Write the effective config to the user config directory")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SaveRequested reports whether --save-config was given.
func SaveRequested() bool {
	return *flagSaveConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagEdgeSubdivisions >= 0 {
		cfg.LOD.EdgeSubdivisions = *flagEdgeSubdivisions
	}
	if *flagMaxLevel >= 0 {
		cfg.LOD.HardLimitLevel = *flagMaxLevel
	}
	if *flagTicks > 0 {
		cfg.Simulation.Ticks = *flagTicks
	}
	if *flagMetricsAddr != "" {
		cfg.Metrics.ListenAddr = *flagMetricsAddr
	}
	if *flagDump != "" {
		cfg.Export.MeshDump = *flagDump
	}
}
