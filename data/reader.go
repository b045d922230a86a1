package data

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const defaultEncoding = "utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type cachedFrame struct {
	frame    *Frame
	encoding string
}

// Reader decodes feature CSV files. Decoded frames are kept in an LRU cache
// keyed by path, size and modification time, so a file rewritten by an
// extraction run is read again.
type Reader struct {
	cache  *lru.Cache[string, cachedFrame]
	logger *zap.Logger
}

func NewReader(size int, logger *zap.Logger) (*Reader, error) {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, cachedFrame](size)
	if err != nil {
		return nil, err
	}
	return &Reader{cache: cache, logger: logger}, nil
}

// Read returns the frame stored at path and the name of the text encoding it
// was decoded with. A missing file yields ErrNotFound.
func (r *Reader) Read(path string) (*Frame, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	key := fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())
	if hit, ok := r.cache.Get(key); ok {
		return hit.frame, hit.encoding, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	text, encoding, err := decode(raw)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	if encoding != defaultEncoding {
		r.logger.Warn("csv is not valid utf-8, decoded with detected encoding",
			zap.String("path", path), zap.String("encoding", encoding))
	}

	frame, err := parseCSV(text)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", path, err)
	}
	r.cache.Add(key, cachedFrame{frame: frame, encoding: encoding})
	return frame, encoding, nil
}

// decode returns UTF-8 text. Valid UTF-8 is used as is; anything else goes
// through the detected encoding instead of failing.
func decode(raw []byte) ([]byte, string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, defaultEncoding, nil
	}

	enc, name, _ := charset.DetermineEncoding(raw, "")
	if name == defaultEncoding {
		// the sniffed prefix was valid but the whole file is not
		enc, name = charmap.Windows1252, "windows-1252"
	}
	text, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return nil, name, err
	}
	return text, name, nil
}

func parseCSV(text []byte) (*Frame, error) {
	reader := csv.NewReader(bytes.NewReader(text))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv: %w", ErrDataIntegrity)
	}
	return NewFrame(headerNames(records[0]), records[1:]), nil
}

// headerNames names empty header cells "Unnamed: <i>" and suffixes repeated
// names with ".1", ".2", ... so every column is addressable.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}
