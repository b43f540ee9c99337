package render

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Fonts resolves family names to parsed fonts and caches sized faces.
// Resolution order: the explicit font file, then files in the font
// directories whose name starts with the family, then the embedded Go fonts.
type Fonts struct {
	Path string   // overrides every family when set
	Dirs []string // searched for <family>*.ttf / .otf

	log *slog.Logger

	mu     sync.Mutex
	parsed map[string]*opentype.Font
	faces  map[faceKey]font.Face
}

type faceKey struct {
	family    string
	size, dpi float64
}

// NewFonts creates a resolver; log may be nil
func NewFonts(path string, dirs []string, log *slog.Logger) *Fonts {
	if log == nil {
		log = slog.Default()
	}
	return &Fonts{
		Path:   path,
		Dirs:   dirs,
		log:    log,
		parsed: make(map[string]*opentype.Font),
		faces:  make(map[faceKey]font.Face),
	}
}

// Face returns a face for family at size points rendered at dpi
func (f *Fonts) Face(family string, size, dpi float64) (font.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := faceKey{strings.ToLower(strings.TrimSpace(family)), size, dpi}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	fnt, err := f.resolve(key.family)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("font %q at %gpt: %w", family, size, err)
	}
	f.faces[key] = face
	return face, nil
}

// Close releases every cached face
func (f *Fonts) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for k, face := range f.faces {
		if err := face.Close(); err != nil && first == nil {
			first = err
		}
		delete(f.faces, k)
	}
	return first
}

func (f *Fonts) resolve(family string) (*opentype.Font, error) {
	if fnt, ok := f.parsed[family]; ok {
		return fnt, nil
	}

	var (
		fnt *opentype.Font
		err error
	)
	switch {
	case f.Path != "":
		fnt, err = parseFile(f.Path)
		if err != nil {
			return nil, err
		}
	default:
		if file := f.find(family); file != "" {
			fnt, err = parseFile(file)
			if err != nil {
				f.log.Warn("unreadable font file, using embedded font", "file", file, "error", err)
			}
		}
		if fnt == nil {
			data, known := embedded(family)
			if !known {
				f.log.Warn("font family not found, falling back to Go Regular", "family", family, "dirs", f.Dirs)
			}
			fnt, err = opentype.Parse(data)
			if err != nil {
				return nil, fmt.Errorf("parsing embedded font: %w", err)
			}
		}
	}
	f.parsed[family] = fnt
	return fnt, nil
}

// find looks for the best file for family in the font directories
func (f *Fonts) find(family string) string {
	want := strings.ReplaceAll(family, " ", "")
	if want == "" {
		return ""
	}
	var matches []string
	for _, dir := range f.Dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".ttf" && ext != ".otf" {
				return nil
			}
			name := strings.ToLower(strings.ReplaceAll(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())), " ", ""))
			if strings.HasPrefix(name, want) {
				matches = append(matches, path)
			}
			return nil
		})
	}
	if len(matches) == 0 {
		return ""
	}
	sort.Slice(matches, func(i, j int) bool {
		ri, rj := isRegular(matches[i]), isRegular(matches[j])
		if ri != rj {
			return ri
		}
		if len(matches[i]) != len(matches[j]) {
			return len(matches[i]) < len(matches[j])
		}
		return matches[i] < matches[j]
	})
	return matches[0]
}

func isRegular(path string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(path)), "regular")
}

func parseFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", path, err)
	}
	return fnt, nil
}

// embedded maps generic and Go family names onto the bundled fonts
func embedded(family string) ([]byte, bool) {
	switch family {
	case "", "go", "go regular", "sans", "sans-serif":
		return goregular.TTF, true
	case "go bold":
		return gobold.TTF, true
	case "go mono", "mono", "monospace":
		return gomono.TTF, true
	}
	return goregular.TTF, false
}
