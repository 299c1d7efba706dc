// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/logging"
	"github.com/jeranaias/procubot-tui/internal/model"
)

// Microphone errors. The UI maps each to a localized message.
var (
	ErrNoMicrophone     = errors.New("no microphone recorder available")
	ErrMicrophoneDenied = errors.New("microphone permission denied")
	ErrMicrophone       = errors.New("could not access microphone")
	ErrEmptyRecording   = errors.New("recording is empty")
)

// DefaultMaxDuration bounds a recording when the caller gives no limit.
const DefaultMaxDuration = 2 * time.Minute

// Backend is a command-line audio recorder that writes one encoded stream
// to stdout.
type Backend struct {
	Name     string
	MimeType string
	Args     func(d time.Duration) []string
}

// DefaultBackends returns the recorders to try for this platform, in order.
func DefaultBackends() []Backend {
	// arecord treats -d 0 as unlimited, so never go below one second.
	secs := func(d time.Duration) string {
		n := int(d.Round(time.Second) / time.Second)
		if n < 1 {
			n = 1
		}
		return strconv.Itoa(n)
	}

	ffmpegInput := []string{"-f", "alsa", "-i", "default"}
	switch runtime.GOOS {
	case "darwin":
		ffmpegInput = []string{"-f", "avfoundation", "-i", ":0"}
	case "windows":
		ffmpegInput = []string{"-f", "dshow", "-i", "audio=default"}
	}

	return []Backend{
		{
			Name:     "arecord",
			MimeType: "audio/wav",
			Args: func(d time.Duration) []string {
				return []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav", "-d", secs(d), "-"}
			},
		},
		{
			Name:     "ffmpeg",
			MimeType: "audio/ogg",
			Args: func(d time.Duration) []string {
				args := []string{"-hide_banner", "-loglevel", "error"}
				args = append(args, ffmpegInput...)
				return append(args, "-t", secs(d), "-ac", "1", "-c:a", "libopus", "-f", "ogg", "pipe:1")
			},
		},
	}
}

// Recorder captures microphone audio by running the first available backend.
type Recorder struct {
	Backends []Backend
	lookPath func(string) (string, error)
}

// NewRecorder returns a recorder using the platform backends.
func NewRecorder() *Recorder {
	return &Recorder{Backends: DefaultBackends(), lookPath: exec.LookPath}
}

// Available reports the backend that would be used, or ErrNoMicrophone.
func (r *Recorder) Available() (Backend, string, error) {
	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, b := range r.Backends {
		if path, err := lookPath(b.Name); err == nil {
			return b, path, nil
		}
	}
	return Backend{}, "", ErrNoMicrophone
}

// Record captures audio until maxDuration elapses or ctx is cancelled, and
// returns it as a single audio attachment. Cancelling ctx stops the recording
// and keeps what was captured so far.
func (r *Recorder) Record(ctx context.Context, maxDuration time.Duration) (model.Attachment, error) {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	backend, path, err := r.Available()
	if err != nil {
		return model.Attachment{}, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, backend.Args(maxDuration)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Interrupt lets the recorder flush its container before exiting.
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 3 * time.Second

	logging.L().Info("recording_started",
		zap.String("backend", backend.Name),
		zap.Duration("max_duration", maxDuration),
	)
	start := time.Now()
	runErr := cmd.Run()
	stopped := ctx.Err() != nil

	logging.L().Info("recording_finished",
		zap.String("backend", backend.Name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", stdout.Len()),
		zap.Bool("stopped", stopped),
	)

	if runErr != nil && !(stopped && stdout.Len() > 0) {
		return model.Attachment{}, classifyRecorderError(runErr, stderr.String())
	}
	if stdout.Len() == 0 {
		return model.Attachment{}, ErrEmptyRecording
	}
	return FromRecording(stdout.Bytes(), backend.MimeType), nil
}

// classifyRecorderError maps recorder failures onto the microphone errors.
func classifyRecorderError(err error, stderr string) error {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "not authorized"):
		return fmt.Errorf("%w: %s", ErrMicrophoneDenied, strings.TrimSpace(stderr))
	case strings.Contains(msg, "no such device"), strings.Contains(msg, "no such file"),
		strings.Contains(msg, "cannot find card"), strings.Contains(msg, "audio open error"):
		return fmt.Errorf("%w: %s", ErrNoMicrophone, strings.TrimSpace(stderr))
	}
	return fmt.Errorf("%w: %w", ErrMicrophone, err)
}
