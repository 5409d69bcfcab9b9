// Package events defines the typed orchestration event contract.
//
// Event kinds are grouped by source-facing namespaces:
//
//   - perception.*: user-side input observed by the capture path
//   - inference.*: frames arriving from the inference stream
//   - stream.*: inference connection lifecycle
//   - actuator.*: actuator gateway status feed
//   - trigger.*: autonomous trigger proposals
//   - control.*: process control surface (open/close input, emergency stop)
//
// Events from a single source preserve source order; no ordering is
// guaranteed across sources. The orchestrator's session guards are the only
// mechanism resolving cross-source races.
package events
