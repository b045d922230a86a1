package preprocess

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func touch(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("score"), 0o644))
	}
}

func writeMIDI(t *testing.T, path string) {
	t.Helper()
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(960, midi.NoteOff(0, 60))
	tr.Close(0)
	s := smf.New()
	require.NoError(t, s.Add(tr))
	require.NoError(t, s.WriteFile(path))
}

func TestFixInvalidFilenames(t *testing.T) {
	root := t.TempDir()
	touch(t,
		filepath.Join(root, "Artist", "Song, One.xml"),
		filepath.Join(root, "Artist", "Song;Two.mid"),
		filepath.Join(root, "Artist", "Plain name.krn"),
		filepath.Join(root, "Artist", "notes, draft.txt"),
	)

	renames, err := FixInvalidFilenames([]string{root}, nil)
	require.NoError(t, err)
	assert.Len(t, renames, 2)

	assert.FileExists(t, filepath.Join(root, "Artist", "Song__One.xml"))
	assert.FileExists(t, filepath.Join(root, "Artist", "Song_Two.mid"))
	assert.NoFileExists(t, filepath.Join(root, "Artist", "Song, One.xml"))
	// names without , or ; are left alone, spaces included
	assert.FileExists(t, filepath.Join(root, "Artist", "Plain name.krn"))
	assert.FileExists(t, filepath.Join(root, "Artist", "notes, draft.txt"))
}

func TestValidateMIDI(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.mid")
	writeMIDI(t, good)
	tracks, err := ValidateMIDI(good)
	require.NoError(t, err)
	assert.Equal(t, 1, tracks)

	bad := filepath.Join(dir, "bad.mid")
	require.NoError(t, os.WriteFile(bad, []byte("not midi"), 0o644))
	_, err = ValidateMIDI(bad)
	assert.Error(t, err)
}

func TestConvertToMIDI(t *testing.T) {
	root := filepath.Join(t.TempDir(), "didone")
	touch(t,
		filepath.Join(root, "xml", "ok.xml"),
		filepath.Join(root, "xml", "garbage.musicxml"),
		filepath.Join(root, "xml", "slow.mxl"),
		filepath.Join(root, "xml", "broken.xml"),
		filepath.Join(root, "krn", "quartet.krn"),
		filepath.Join(root, "xml", "done.xml"),
		filepath.Join(root, "midi", "stale.mid"),
	)
	writeMIDI(t, filepath.Join(root, "xml", "done.mid"))
	good := filepath.Join(t.TempDir(), "template.mid")
	writeMIDI(t, good)
	template, err := os.ReadFile(good)
	require.NoError(t, err)

	var commands [][]string
	c := &Converter{
		MscoreExe: "mscore",
		Hum2Mid:   "hum2mid",
		Timeout:   50 * time.Millisecond,
		run: func(ctx context.Context, argv []string) error {
			commands = append(commands, argv)
			joined := strings.Join(argv, " ")
			switch {
			case strings.Contains(joined, "slow"):
				<-ctx.Done()
				return ctx.Err()
			case strings.Contains(joined, "broken"):
				return errors.New("exit status 1")
			case strings.Contains(joined, "garbage"):
				return os.WriteFile(filepath.Join(root, "xml", "garbage.mid"), []byte("junk"), 0o644)
			case argv[0] == "hum2mid":
				return os.WriteFile(argv[len(argv)-1], template, 0o644)
			default:
				return os.WriteFile(argv[2], template, 0o644)
			}
		},
	}

	sum, err := c.ConvertToMIDI(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, Summary{Converted: 2, Existing: 1, TimedOut: 1, Failed: 1, Invalid: 1}, sum)

	assert.NoDirExists(t, filepath.Join(root, "midi"))
	assert.FileExists(t, filepath.Join(root, "xml", "ok.mid"))
	assert.FileExists(t, filepath.Join(root, "krn", "quartet.mid"))
	assert.Contains(t, commands, []string{"hum2mid", filepath.Join(root, "krn", "quartet.krn"), "-CIPT", "-o",
		filepath.Join(root, "krn", "quartet.mid")})
	assert.Contains(t, commands, []string{"mscore", "-fo", filepath.Join(root, "xml", "ok.mid"),
		filepath.Join(root, "xml", "ok.xml")})
}
