// Package preprocess prepares the dataset trees before feature extraction:
// it fixes file names the extractors choke on and adds a MIDI rendition of
// every score.
package preprocess

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/zap"
)

var (
	renameExtensions  = []string{".xml", ".musicxml", ".mxl", ".mid", ".krn"}
	convertExtensions = []string{".xml", ".musicxml", ".mxl", ".krn"}
	unsafeChars       = strings.NewReplacer(",", "_", ";", "_", " ", "_")
)

// Rename records one fixed file name.
type Rename struct {
	From string
	To   string
}

// FixInvalidFilenames renames every score whose name contains ',' or ';'.
// Those characters and spaces are replaced with '_' in the whole path, so
// parent directories may be created.
func FixInvalidFilenames(roots []string, logger *zap.Logger) ([]Rename, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var renames []Rename
	for _, root := range roots {
		var found []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !slices.Contains(renameExtensions, filepath.Ext(path)) {
				return nil
			}
			if strings.ContainsAny(d.Name(), ",;") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return renames, err
		}

		for _, path := range found {
			target := unsafeChars.Replace(path)
			logger.Info("renaming", zap.String("from", path), zap.String("to", target))
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return renames, err
			}
			if err := os.Rename(path, target); err != nil {
				return renames, err
			}
			renames = append(renames, Rename{From: path, To: target})
		}
	}
	return renames, nil
}

// Summary counts what a conversion pass did.
type Summary struct {
	Converted int
	Existing  int
	TimedOut  int
	Failed    int
	Invalid   int
}

// Converter renders scores to MIDI with MuseScore, or hum2mid for kern files.
type Converter struct {
	MscoreExe string
	Hum2Mid   string
	Timeout   time.Duration
	Logger    *zap.Logger

	run func(ctx context.Context, argv []string) error
}

func (c *Converter) command(path, out string) []string {
	if filepath.Ext(path) == ".krn" {
		return []string{c.Hum2Mid, path, "-CIPT", "-o", out}
	}
	return []string{c.MscoreExe, "-fo", out, path}
}

func runQuiet(ctx context.Context, argv []string) error {
	return exec.CommandContext(ctx, argv[0], argv[1:]...).Run()
}

// ConvertToMIDI writes <name>.mid next to every score of roots lacking one.
// The didone tree has its stale midi directory removed first. A conversion
// that times out or fails is logged and skipped; a produced file that is not
// a readable SMF is logged as invalid.
func (c *Converter) ConvertToMIDI(ctx context.Context, roots []string) (Summary, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	run := c.run
	if run == nil {
		run = runQuiet
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	var sum Summary
	for _, root := range roots {
		if strings.Contains(root, "didone") {
			if err := os.RemoveAll(filepath.Join(root, "midi")); err != nil {
				return sum, err
			}
		}

		var scores []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && slices.Contains(convertExtensions, filepath.Ext(path)) {
				scores = append(scores, path)
			}
			return nil
		})
		if err != nil {
			return sum, err
		}

		for _, path := range scores {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			out := strings.TrimSuffix(path, filepath.Ext(path)) + ".mid"
			if _, err := os.Stat(out); err == nil {
				logger.Debug("already converted", zap.String("path", path))
				sum.Existing++
				continue
			}

			argv := c.command(path, out)
			logger.Info("converting to midi", zap.String("path", path))
			fileCtx, cancel := context.WithTimeout(ctx, timeout)
			err := run(fileCtx, argv)
			timedOut := errors.Is(fileCtx.Err(), context.DeadlineExceeded)
			cancel()

			switch {
			case timedOut:
				logger.Warn("conversion timed out, continuing",
					zap.String("path", path), zap.String("command", strings.Join(argv, " ")))
				sum.TimedOut++
				continue
			case err != nil:
				logger.Warn("conversion failed", zap.String("path", path), zap.Error(err))
				sum.Failed++
				continue
			}

			if _, err := ValidateMIDI(out); err != nil {
				logger.Warn("converted file is not valid midi", zap.String("path", out), zap.Error(err))
				sum.Invalid++
				continue
			}
			sum.Converted++
		}
	}
	return sum, nil
}

// ValidateMIDI parses a standard MIDI file and returns its track count.
func ValidateMIDI(path string) (int, error) {
	file, err := smf.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if len(file.Tracks) == 0 {
		return 0, fmt.Errorf("%s has no tracks", path)
	}
	return len(file.Tracks), nil
}
