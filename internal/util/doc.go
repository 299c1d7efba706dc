// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across procubot.
//
// # Key Functions
//
// String Utilities:
//   - TruncateWidth: Column-aware truncation with an ellipsis (CJK safe)
//   - StringWidth, PadRight: Display-width measurement and padding
//   - FirstLine: One-line previews of multi-line text
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	// Truncate long file names safely for display
//	label := util.TruncateWidth(name, 24)
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0600)
package util
