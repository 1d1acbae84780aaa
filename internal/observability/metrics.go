package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fittrack",
		Subsystem: "persistence",
		Name:      "last_workout_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout session persisted to Postgres.",
	})
	challengeCompletedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fittrack",
		Subsystem: "persistence",
		Name:      "last_challenge_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent challenge achievement recorded.",
	})
)

func init() {
	prometheus.MustRegister(workoutPersistGauge, challengeCompletedGauge)
}

// RecordWorkoutPersisted updates the persistence watermark gauge.
func RecordWorkoutPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutPersistGauge.Set(float64(ts.Unix()))
}

// RecordChallengeCompleted updates the achievement watermark gauge.
func RecordChallengeCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	challengeCompletedGauge.Set(float64(ts.Unix()))
}
