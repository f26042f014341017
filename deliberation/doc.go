// Copyright (c) Parliament Authors.
// Licensed under the MIT License.

// Package deliberation implements the multi-round deliberation engine: round
// execution over a parliament of analysts, CROSS score merging, consensus and
// dead-end evaluation, and the session lifecycle.
//
// One round runs the specialist pool, then the generalist with the
// specialists' responses as peers, merges the surviving CROSS scores, and
// evaluates the merge against the round's thresholds:
//
//   - consensus: all thresholds met with close agreement; session done
//   - dead_end:  confidence declining or risk persistently high; automatic
//     deliberation is unlikely to converge, human guidance required
//   - continue:  another round is warranted
//
// SessionManager drives sessions through the lifecycle and owns persistence;
// RoundExecutor runs single rounds; ConsensusBuilder holds the decision
// rules. All three are safe for concurrent use.
package deliberation
