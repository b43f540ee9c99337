package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is an output encoding
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "png" or "svg" in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatSVG:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want png or svg)", s)
}

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%s has no extension to pick an output format from", path)
	}
	return ParseFormat(ext)
}

// WriteFile renders the scene to path, creating parent directories. An empty
// format is taken from the extension. The file only appears once the whole
// image has been encoded.
func WriteFile(path string, format Format, s Scene, fonts *Fonts) error {
	var err error
	if format == "" {
		if format, err = FormatFromPath(path); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		err = PNG(&buf, s, fonts)
	case FormatSVG:
		err = SVG(&buf, s, fonts)
	default:
		err = fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	return replaceFile(path, dir, buf.Bytes())
}

// replaceFile writes data next to path and renames it into place
func replaceFile(path, dir string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving output into place: %w", err)
	}
	return nil
}
