// Copyright (c) Parliament Authors.
// Licensed under the MIT License.

/*
Package types provides the shared data model for the Parliament deliberation
engine.

types is the lowest-level package in the module and depends on nothing
internal, so every other package (agent, deliberation, storage, config) can
share its contracts without import cycles.

# Core types

  - Score         — a single CROSS triple (confidence / risk / outcome) plus rationale
  - MergedScore   — aggregate of the Scores contributed in one round
  - AgentResponse — one analyst's contribution to a round
  - RoundRecord   — the complete outcome of one deliberation round
  - Session       — a deliberation session: task, context buffer, round history, status
  - Project       — the configuration domain a session runs in (personas, token budgets)
  - Snippet       — one retrieved knowledge fragment
  - Error / ErrorCode — structured error scheme shared across the module

Score and MergedScore are pure value types and are copied freely. A Session
exclusively owns its RoundRecords.
*/
package types
