/*
 * Copyright 2025 Calldeck Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mos derives a MOS-style perceptual call-quality score from jitter
// and packet-loss telemetry. Scores lie in [1.0, 5.0]; lower is worse.
package mos

const (
	baseScore = 5.0
	floor     = 1.0

	jitterThresholdMs        = 10.0
	jitterPenaltyPer10msOver = 0.1

	lossGoodThresholdPct = 2.0
	lossFairThresholdPct = 5.0
	lossPenaltyFair      = 0.5
	lossPenaltyPoor      = 1.5
)

// Score combines per-direction jitter (ms) and packet loss (percent) into a
// single quality number. Each direction is scored independently when both of
// its inputs are present; the result is the worse of the two directions,
// since a call is only as good as its weakest leg. ok is false when neither
// direction carried usable telemetry.
func Score(incomingJitter, outgoingJitter, incomingLossPct, outgoingLossPct *float64) (score float64, ok bool) {
	var scores []float64

	if incomingJitter != nil && incomingLossPct != nil {
		scores = append(scores, directionScore(*incomingJitter, *incomingLossPct))
	}

	if outgoingJitter != nil && outgoingLossPct != nil {
		scores = append(scores, directionScore(*outgoingJitter, *outgoingLossPct))
	}

	if len(scores) == 0 {
		return 0, false
	}

	score = scores[0]
	for _, s := range scores[1:] {
		if s < score {
			score = s
		}
	}

	return score, true
}

func directionScore(jitter, lossPct float64) float64 {
	jitterPenalty := 0.0
	if jitter > jitterThresholdMs {
		jitterPenalty = (jitter - jitterThresholdMs) / 10.0 * jitterPenaltyPer10msOver
	}

	var lossPenalty float64

	switch {
	case lossPct <= lossGoodThresholdPct:
		lossPenalty = 0
	case lossPct <= lossFairThresholdPct:
		lossPenalty = lossPenaltyFair
	default:
		lossPenalty = lossPenaltyPoor
	}

	score := baseScore - jitterPenalty - lossPenalty
	if score < floor {
		return floor
	}

	return score
}
