// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/logging"
	"github.com/jeranaias/procubot-tui/internal/model"
)

// ErrMalformedData is returned when inline data is not valid base64.
var ErrMalformedData = errors.New("attachment data is malformed")

// launch opens target in the default application. Replaced in tests.
var launch = openWithSystem

// Open shows an attachment in the system viewer. A display URL that is not a
// data URL is opened directly; inline data is written to a temp file first.
//
// Failures are logged and returned; callers show them as a notification only.
func Open(att model.Attachment) error {
	if att.DisplayURL != "" && !strings.HasPrefix(att.DisplayURL, "data:") {
		return launch(att.DisplayURL)
	}
	path, err := Materialize(att)
	if err != nil {
		return err
	}
	if err := launch(path); err != nil {
		logging.L().Warn("attachment_open_failed", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}

// Materialize writes the inline data to a new temp file and returns its path.
// The file name keeps the original extension so viewers pick the right app.
func Materialize(att model.Attachment) (string, error) {
	data, err := att.Decode()
	if err != nil {
		logging.L().Error("attachment_decode_failed",
			zap.String("mime_type", att.MimeType),
			zap.String("file_name", att.FileName),
			zap.Error(err),
		)
		if errors.Is(err, model.ErrNoAttachmentSource) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrMalformedData, err)
	}

	f, err := os.CreateTemp("", "procubot-*"+extensionFor(att))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return f.Name(), nil
}

// extensionFor picks a file extension from the name, then the MIME type.
func extensionFor(att model.Attachment) string {
	if i := strings.LastIndexByte(att.FileName, '.'); i >= 0 && i < len(att.FileName)-1 {
		return att.FileName[i:]
	}
	for ext, mt := range extensionTypes {
		if mt == att.MimeType && ext != ".jpeg" && ext != ".oga" {
			return ext
		}
	}
	if exts, err := mime.ExtensionsByType(att.MimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// openWithSystem opens a file or URL in the default application for the OS.
func openWithSystem(target string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.Command("xdg-open", target)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
