package cell

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"

	"github.com/spf13/afero"
)

// Image is a decoded-enough image file ready to hand to a Renderer.
type Image struct {
	Path     string // path as written in the display directive
	Format   string // png, jpeg or gif
	MIMEType string
	Width    int
	Height   int
	Data     []byte // raw file contents
}

// ImageOpener opens the file named by a display directive.
type ImageOpener interface {
	Open(path string) (*Image, error)
}

// Renderer shows an image in the host environment.
type Renderer interface {
	Render(img *Image) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(img *Image) error

func (f RendererFunc) Render(img *Image) error { return f(img) }

// ImageLoader opens images from a filesystem. Relative paths are resolved
// against Dir, which should match the directory the cell ran in.
type ImageLoader struct {
	Fs  afero.Fs
	Dir string
}

// NewImageLoader returns a loader on the OS filesystem.
func NewImageLoader(dir string) *ImageLoader {
	return &ImageLoader{Fs: afero.NewOsFs(), Dir: dir}
}

// Open reads path and checks that it is a PNG, JPEG or GIF image.
func (l *ImageLoader) Open(path string) (*Image, error) {
	full := path
	if !filepath.IsAbs(full) && l.Dir != "" {
		full = filepath.Join(l.Dir, full)
	}
	fs := l.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	data, err := afero.ReadFile(fs, full)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", path, err)
	}
	return &Image{
		Path:     path,
		Format:   format,
		MIMEType: "image/" + format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Data:     data,
	}, nil
}
