// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the procubot TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection; the ui.theme setting can force either mode.

# Color System (colors.go)

  - Blue - Brand color, user bubbles and the header badge
  - Cyan - Accent for links, sources and the model icon
  - Red - Reset button, errors
  - Slate - Surfaces and text hierarchy

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	if theme.IsDark {
		// Dark terminal detected
	}
	bubble := theme.UserBubble.Render(text)
*/
package styles
