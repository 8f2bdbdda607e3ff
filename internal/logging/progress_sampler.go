package logging

import "strings"

// ProgressSampler throttles progress logs to one line per percentage bucket,
// plus one whenever the stage changes.
type ProgressSampler struct {
	bucketSize float64
	lastStage  string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 10%) or when the stage changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged. A negative
// percent means the total is unknown and only stage changes emit.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	stage = strings.TrimSpace(stage)
	emit := false
	if stage != "" && stage != s.lastStage {
		s.lastStage = stage
		emit = true
		s.lastBucket = -1
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		bucket := int(percent / s.bucketSize)
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastStage = ""
	s.lastBucket = -1
}
