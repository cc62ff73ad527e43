package lights

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/sh"
)

const (
	// DefaultMapWidth and DefaultMapHeight give the resolution of generated basis maps
	DefaultMapWidth  = 256
	DefaultMapHeight = 128

	// PatternScale is the emission represented by a full-range 16-bit texel
	PatternScale = 4.0
)

// SHMapLight is an environment light driven by a lat-long map holding one lobe
// of a spherical-harmonic basis function.
//
// Each basis map lives in its own file under the maps directory, named
// "<harmonic> <sign>.tiff". Activating a basis loads that file, or renders the
// lobe and writes the file when it does not exist yet. Generated and loaded
// maps go through the same 16-bit quantization, so a run reading cached maps
// sees exactly the emission of the run that wrote them.
type SHMapLight struct {
	mapsRoot      string
	width, height int
	active        *LatLongMap
	pattern       BasisPattern
}

// NewSHMapLight creates a basis map light. An empty mapsRoot disables map files.
func NewSHMapLight(mapsRoot string, width, height int) *SHMapLight {
	if width <= 0 || height <= 0 {
		width, height = DefaultMapWidth, DefaultMapHeight
	}
	return &SHMapLight{mapsRoot: mapsRoot, width: width, height: height}
}

// SetMapsRoot implements MapStore. An empty dir disables map files.
func (l *SHMapLight) SetMapsRoot(dir string) {
	l.mapsRoot = dir
}

// MapFileName returns the file name of the map for one basis lobe
func MapFileName(harmonic, sign int) string {
	return fmt.Sprintf("%d %d.tiff", harmonic, sign)
}

// ActivateBasis implements PatternLight
func (l *SHMapLight) ActivateBasis(harmonic, sign int) (BasisPattern, error) {
	if harmonic < 0 {
		return BasisPattern{}, fmt.Errorf("invalid harmonic index %d", harmonic)
	}
	if sign != 1 && sign != -1 {
		return BasisPattern{}, fmt.Errorf("invalid lobe sign %d", sign)
	}

	var img *image.Gray16
	var path string
	if l.mapsRoot != "" {
		path = filepath.Join(l.mapsRoot, MapFileName(harmonic, sign))
		loaded, err := l.loadMap(path)
		switch {
		case err == nil:
			img = loaded
		case !errors.Is(err, fs.ErrNotExist):
			return BasisPattern{}, fmt.Errorf("failed to load basis map %q: %w", path, err)
		}
	}

	if img == nil {
		img = RenderGray16(l.width, l.height, PatternScale, func(dir core.Vec3) float64 {
			return sh.Lobe(harmonic, sign, dir)
		})
		if path != "" {
			if err := saveMap(path, img); err != nil {
				return BasisPattern{}, fmt.Errorf("failed to write basis map %q: %w", path, err)
			}
		}
	}

	l.active = NewLatLongMapFromGray16(img, PatternScale)
	l.pattern = BasisPattern{Harmonic: harmonic, Sign: sign, Source: path}
	return l.pattern, nil
}

// ActivePattern returns the pattern set by the last ActivateBasis
func (l *SHMapLight) ActivePattern() (BasisPattern, bool) {
	return l.pattern, l.active != nil
}

func (l *SHMapLight) Type() LightType {
	return LightTypeInfinite
}

// Sample implements the Light interface
func (l *SHMapLight) Sample(point core.Vec3, normal core.Vec3, sample core.Vec2) LightSample {
	ls := sampleHemisphere(normal, sample, core.Vec3{})
	ls.Emission = l.Emit(core.NewRay(point, ls.Direction))
	return ls
}

// PDF implements the Light interface
func (l *SHMapLight) PDF(point, normal, direction core.Vec3) float64 {
	return cosineHemispherePDF(normal, direction)
}

// Emit implements the Light interface. Before the first ActivateBasis the light is black.
func (l *SHMapLight) Emit(ray core.Ray) core.Vec3 {
	if l.active == nil {
		return core.Vec3{}
	}
	value := l.active.Lookup(ray.Direction.Normalize())
	return core.NewVec3(value, value, value)
}

// loadMap decodes a basis map and brings it to the light's resolution
func (l *SHMapLight) loadMap(path string) (*image.Gray16, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	src, err := tiff.Decode(file)
	if err != nil {
		return nil, err
	}

	if gray, ok := src.(*image.Gray16); ok && gray.Bounds().Dx() == l.width && gray.Bounds().Dy() == l.height {
		return gray, nil
	}

	dst := image.NewGray16(image.Rect(0, 0, l.width, l.height))
	if src.Bounds().Dx() == l.width && src.Bounds().Dy() == l.height {
		xdraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	}
	return dst, nil
}

// saveMap writes the map next to its final path and renames it into place
func saveMap(path string, img *image.Gray16) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".basis-*.tiff")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tiff.Encode(tmp, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
