// Package sim drives a sphere with a scripted camera descent.
package sim

import (
	"context"
	"fmt"
	gomath "math"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/config"
	"github.com/Faultbox/quadsphere/internal/engine/camera"
	"github.com/Faultbox/quadsphere/internal/engine/celestial"
	"github.com/Faultbox/quadsphere/internal/engine/lod"
	"github.com/Faultbox/quadsphere/internal/engine/picking"
	"github.com/Faultbox/quadsphere/internal/engine/terrain/meshdump"
	"github.com/Faultbox/quadsphere/internal/jobs"
	"github.com/Faultbox/quadsphere/internal/logger"
	"github.com/Faultbox/quadsphere/pkg/math"
)

// statsEvery is how many ticks pass between progress log lines.
const statsEvery = 60

// Simulation is one scripted run.
type Simulation struct {
	cfg    *config.Config
	log    *zap.Logger
	body   *celestial.Body
	camera *camera.OrbitCamera
	path   *camera.DescentPath
	sched  *jobs.Scheduler
	sphere *lod.Sphere
}

// New builds the body, camera and sphere described by cfg.
func New(cfg *config.Config) (*Simulation, error) {
	log := logger.Named("sim")
	log.Info("initializing simulation",
		zap.String("body", cfg.Body.Name),
		zap.Float64("radius", cfg.Body.Radius),
		zap.Int("ticks", cfg.Simulation.Ticks),
	)

	pos := math.Vec3d{X: cfg.Body.Position[0], Y: cfg.Body.Position[1], Z: cfg.Body.Position[2]}
	body := celestial.NewBody(cfg.Body.Name, cfg.Body.Radius, pos)
	body.Tilt = math.QuatFromAxisAngle(math.Vec3d{Z: 1}, cfg.Body.AxialTilt*gomath.Pi/180)

	cam := camera.NewOrbitCamera(body)
	cam.Latitude = cfg.Simulation.Latitude * gomath.Pi / 180
	if cfg.Simulation.StartAltitude > cam.MaxAltitude {
		cam.MaxAltitude = cfg.Simulation.StartAltitude
	}
	if cfg.Simulation.EndAltitude < cam.MinAltitude {
		cam.MinAltitude = cfg.Simulation.EndAltitude
	}
	path := camera.NewDescentPath(cam,
		cfg.Simulation.StartAltitude,
		cfg.Simulation.EndAltitude,
		cfg.Simulation.Ticks,
		cfg.Simulation.OrbitSpeed,
	)

	sched := jobs.NewScheduler(cfg.Workers.Count)
	sphere, err := lod.New(body, Options(cfg), sched)
	if err != nil {
		return nil, fmt.Errorf("failed to create sphere: %w", err)
	}

	return &Simulation{
		cfg:    cfg,
		log:    log,
		body:   body,
		camera: cam,
		path:   path,
		sched:  sched,
		sphere: sphere,
	}, nil
}

// Options converts the LOD section of cfg.
func Options(cfg *config.Config) lod.Options {
	return lod.Options{
		EdgeSubdivisions: cfg.LOD.EdgeSubdivisions,
		HardLimitLevel:   cfg.LOD.HardLimitLevel,
		RangeMultiplier:  cfg.LOD.RangeMultiplier,
		MergeMultiplier:  cfg.LOD.MergeMultiplier,
		SyncGeneration:   cfg.LOD.SyncGeneration,
	}
}

// Sphere returns the simulated sphere.
func (s *Simulation) Sphere() *lod.Sphere { return s.sphere }

// Camera returns the camera driving the run.
func (s *Simulation) Camera() *camera.OrbitCamera { return s.camera }

// Run ticks until the descent is finished or ctx is cancelled.
func (s *Simulation) Run(ctx context.Context) error {
	var ticker *time.Ticker
	if s.cfg.Simulation.TickInterval > 0 {
		ticker = time.NewTicker(s.cfg.Simulation.TickInterval)
		defer ticker.Stop()
	}

	start := time.Now()
	s.log.Info("starting simulation loop")

	for !s.path.Done() {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.Step(); err != nil {
			return fmt.Errorf("tick %d: %w", s.path.Tick(), err)
		}

		if s.path.Tick()%statsEvery == 0 {
			s.logStats()
		}
	}

	s.logStats()
	s.log.Info("simulation finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Step advances the camera and the body by one tick and updates the sphere.
func (s *Simulation) Step() error {
	s.body.Rotate(s.cfg.Body.SpinRate)
	poi := s.path.Step()
	return s.sphere.Update([]math.Vec3d{poi})
}

// Ground returns the patch directly below the camera.
func (s *Simulation) Ground() (picking.Hit, bool) {
	return picking.Nadir(s.sphere, s.body, s.camera.Position())
}

func (s *Simulation) logStats() {
	st := s.sphere.Stats()
	groundLevel := -1
	if hit, ok := s.Ground(); ok {
		groundLevel = hit.Patch.Level()
	}
	s.log.Info("lod stats",
		zap.Int("tick", s.path.Tick()),
		zap.Float64("altitude", s.camera.Altitude),
		zap.Int("patches", st.Patches),
		zap.Int("active", st.Active),
		zap.Int("generating", st.Generating),
		zap.Int("max_level", st.MaxLevel),
		zap.Uint64("splits", st.Splits),
		zap.Uint64("merges", st.Merges),
		zap.Uint64("merge_vetoes", st.MergeVetoes),
		zap.Int("ground_level", groundLevel),
	)
}

// Snapshot copies every active patch mesh into a dump.
func (s *Simulation) Snapshot() meshdump.Dump {
	d := meshdump.Dump{Radius: s.body.Radius()}
	for _, rp := range s.sphere.RenderPatches() {
		d.Patches = append(d.Patches, meshdump.Patch{
			Face:   rp.Face,
			Level:  rp.Level,
			Center: rp.Center,
			Mesh:   rp.Mesh,
		})
	}
	return d
}

// WriteDump writes Snapshot to path.
func (s *Simulation) WriteDump(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating mesh dump: %w", err)
	}
	d := s.Snapshot()
	if err := meshdump.Write(f, d); err != nil {
		f.Close()
		return fmt.Errorf("writing mesh dump: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing mesh dump: %w", err)
	}
	s.log.Info("mesh dump written", zap.String("path", path), zap.Int("patches", len(d.Patches)))
	return nil
}

// Close waits for outstanding mesh work.
func (s *Simulation) Close() error {
	s.log.Info("closing simulation")
	err := s.sphere.Close()
	s.sched.Wait()
	return err
}
