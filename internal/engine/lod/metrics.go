package lod

import (
	"strconv"
	"time"

	"github.com/Faultbox/quadsphere/pkg/cubesphere"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	faceLabel   = "face"
	levelLabel  = "level"
	reasonLabel = "reason"
)

const (
	vetoSubdividedSibling = "sibling_subdivided"
	vetoGeneratingSibling = "sibling_generating"
)

var (
	patchesGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lod_patches",
		Help: "The number of live terrain patches.",
	}, []string{
		faceLabel,
		levelLabel,
	})

	splitCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lod_splits",
		Help: "The number of patches split into four children.",
	}, []string{
		faceLabel,
	})

	mergeCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lod_merges",
		Help: "The number of sibling groups merged back into their parent.",
	}, []string{
		faceLabel,
	})

	mergeVetoCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lod_merge_vetoes",
		Help: "The number of wanted merges that were refused.",
	}, []string{
		reasonLabel,
	})

	meshBuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lod_mesh_build_seconds",
		Help:    "The time to build one patch mesh.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	outstandingTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lod_outstanding_mesh_tasks",
		Help: "The number of mesh generation tasks not yet adopted.",
	})
)

func patchLabels(face cubesphere.Face, level int) prometheus.Labels {
	return prometheus.Labels{
		faceLabel:  face.String(),
		levelLabel: strconv.Itoa(level),
	}
}

func instrumentPatchCreated(face cubesphere.Face, level int) {
	patchesGauge.With(patchLabels(face, level)).Inc()
}

func instrumentPatchDestroyed(face cubesphere.Face, level int) {
	patchesGauge.With(patchLabels(face, level)).Dec()
}

func instrumentSplit(face cubesphere.Face) {
	splitCount.With(prometheus.Labels{faceLabel: face.String()}).Inc()
}

func instrumentMerge(face cubesphere.Face) {
	mergeCount.With(prometheus.Labels{faceLabel: face.String()}).Inc()
}

func instrumentMergeVeto(reason string) {
	mergeVetoCount.With(prometheus.Labels{reasonLabel: reason}).Inc()
}

func instrumentMeshBuild(start time.Time) {
	meshBuildLatency.Observe(time.Since(start).Seconds())
}
