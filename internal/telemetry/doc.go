// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records turn metrics and per-session usage for procubot.
//
// Metrics implements controller.Observer with Prometheus collectors on a
// private registry, which can be dumped to a node_exporter textfile on exit.
// The same callbacks roll up into a SessionUsage that is saved to disk so
// "procubot stats" can report across runs.
//
// # Key Types
//
//   - Metrics: Prometheus collectors plus the live session usage
//   - SessionUsage: Turn, error and latency totals for one run
//   - UsageStorage: JSON files under ~/.procubot/usage/
//   - Trends: Usage aggregated by day
//
// # Usage
//
//	m := telemetry.New()
//	ctrl := controller.New(factory, controller.Options{Observer: m})
//	defer m.WriteTextfile(cfg.Metrics.Textfile)
//
// # Privacy
//
// Usage is local-only and does not transmit any data.
// Message content is never stored - only counts and durations.
package telemetry
