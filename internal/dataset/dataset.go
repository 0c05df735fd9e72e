package dataset

import (
	"fmt"
	"image"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"github.com/ironsheep/fovea-tools-mcp/internal/heatmap"
	"github.com/ironsheep/fovea-tools-mcp/internal/imaging"
)

// Sample is one (input, target) training pair plus the intermediate
// coordinates that produced the target.
type Sample struct {
	Index        int
	ImageName    string
	Input        *imaging.Tensor
	Target       *heatmap.Heatmap
	OriginalSize geometry.Size
	ModelPoint   geometry.Point
	GridPoint    geometry.GridPoint
}

// Dataset produces samples for annotated images. It holds no mutable state
// beyond what its Augmenter and Loader hold, so Item may be called from
// several goroutines.
type Dataset struct {
	geom   geometry.Config
	anns   []Annotation
	index  *Index
	aug    Augmenter
	loader imaging.Loader
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithAugmenter sets the augmentation applied to every item.
func WithAugmenter(a Augmenter) Option {
	return func(d *Dataset) { d.aug = a }
}

// WithLoader sets how image files are read.
func WithLoader(l imaging.Loader) Option {
	return func(d *Dataset) { d.loader = l }
}

// New builds a dataset. Every annotation must resolve through index.
func New(geom geometry.Config, anns []Annotation, index *Index, opts ...Option) (*Dataset, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	for _, a := range anns {
		if _, err := index.Path(a.ImageName); err != nil {
			return nil, err
		}
	}
	d := &Dataset{
		geom:   geom,
		anns:   anns,
		index:  index,
		aug:    Identity{},
		loader: imaging.FileLoader{},
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Open loads annotation tables, indexes imageDir and builds the dataset.
func Open(geom geometry.Config, imageDir string, tables []string, opts ...Option) (*Dataset, error) {
	anns, err := LoadAnnotations(tables...)
	if err != nil {
		return nil, err
	}
	idx, err := BuildIndex(imageDir, Names(anns))
	if err != nil {
		return nil, err
	}
	return New(geom, anns, idx, opts...)
}

// Len returns the number of annotations, duplicates included.
func (d *Dataset) Len() int {
	return len(d.anns)
}

// Annotation returns the i-th annotation.
func (d *Dataset) Annotation(i int) Annotation {
	return d.anns[i]
}

// Path returns the image file behind the i-th annotation.
func (d *Dataset) Path(i int) (string, error) {
	if i < 0 || i >= len(d.anns) {
		return "", fmt.Errorf("index %d out of range [0,%d)", i, len(d.anns))
	}
	return d.index.Path(d.anns[i].ImageName)
}

// Geometry returns the dataset's geometry.
func (d *Dataset) Geometry() geometry.Config {
	return d.geom
}

// Item loads the i-th image, resizes it to the model input, augments it and
// encodes the target heatmap at the augmented landmark. An ItemAugmenter is
// specialized to i first, so the same item is always augmented the same way.
func (d *Dataset) Item(i int) (*Sample, error) {
	path, err := d.Path(i)
	if err != nil {
		return nil, err
	}
	ann := d.anns[i]

	img, err := d.loader.Load(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	orig := geometry.Size{Width: b.Dx(), Height: b.Dy()}
	if orig.Width == 0 || orig.Height == 0 {
		return nil, fmt.Errorf("%s: empty image", ann.ImageName)
	}

	input := d.geom.InputSize
	resized := imaging.Resize(img, input)
	mp := geometry.ToModelSpace(ann.Point(), orig, input)

	aug := d.aug
	if ia, ok := aug.(ItemAugmenter); ok {
		aug = ia.ForItem(i)
	}
	augmented, pts, err := aug.Augment(resized, []geometry.Point{mp})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ann.ImageName, err)
	}
	if len(pts) != 1 {
		return nil, fmt.Errorf("%s: augmentation returned %d points, want 1", ann.ImageName, len(pts))
	}
	if got := augmented.Bounds(); got.Dx() != input.Width || got.Dy() != input.Height {
		return nil, fmt.Errorf("%s: augmentation changed image size to %dx%d", ann.ImageName, got.Dx(), got.Dy())
	}

	gp := geometry.ToGridSpace(pts[0], d.geom.OutputStride)
	target, err := heatmap.Encode(d.geom.GridSize(), d.geom.KernelSize, gp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ann.ImageName, err)
	}

	return &Sample{
		Index:        i,
		ImageName:    ann.ImageName,
		Input:        imaging.ToTensor(augmented),
		Target:       target,
		OriginalSize: orig,
		ModelPoint:   pts[0],
		GridPoint:    gp,
	}, nil
}

// Image loads the original, unresized image behind the i-th annotation.
func (d *Dataset) Image(i int) (image.Image, error) {
	path, err := d.Path(i)
	if err != nil {
		return nil, err
	}
	return d.loader.Load(path)
}
