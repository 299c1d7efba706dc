// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/attachment"
	"github.com/jeranaias/procubot-tui/internal/commands"
	"github.com/jeranaias/procubot-tui/internal/config"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/ui/chat"
	"github.com/jeranaias/procubot-tui/internal/ui/render"
	"github.com/jeranaias/procubot-tui/internal/ui/styles"
)

// configDebounce coalesces the burst of events an editor save produces.
const configDebounce = 250 * time.Millisecond

// runTUI runs the full-screen chat until the user quits.
func runTUI(flags *globalFlags) error {
	if !IsTTY() || !IsStdoutTTY() {
		return errors.New("the chat TUI needs a terminal (use 'procubot chat' or 'procubot ask' instead)")
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}
	defer a.close()

	// Controller events reach the program through the bridge; anything sent
	// before the program starts is covered by the model's first snapshot.
	bridge := chat.NewBridge()
	defer bridge.Close()

	ctrl := controller.New(a.factory, a.controllerOptions(bridge.OnUpdate))
	cmdCtx := commands.NewContext(ctrl, commands.NewRegistry(), attachment.NewRecorder(), a.stats)

	theme := styles.NewTheme(a.cfg.UI.Theme)
	m := chat.New(chat.Deps{
		Controller: ctrl,
		Commands:   cmdCtx,
		Theme:      theme,
		Renderer:   render.New(theme, a.cfg.UI.CodeTheme),
		ModelName:  modelName(a.cfg),
	})

	var opts []tea.ProgramOption
	if a.cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if a.cfg.UI.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, opts...)
	bridge.Attach(p)

	// A saved config file resets the chat with the new settings; flags keep
	// winning over the file.
	if path, err := flags.path(); err == nil {
		w, err := config.Watch(path, configDebounce, func(cfg *config.Config, err error) {
			if err == nil {
				flags.apply(cfg)
			}
			bridge.OnConfigChange(cfg, err)
		})
		if err != nil {
			a.log.Warn("config_watch_failed", zap.String("path", path), zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	a.log.Info("tui_started")
	_, err = p.Run()

	cmdCtx.StopRecording()
	ctrl.Cancel()
	a.log.Info("tui_stopped", zap.Int("messages", ctrl.MessageCount()))
	return err
}
