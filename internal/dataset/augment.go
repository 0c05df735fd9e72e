package dataset

import (
	"fmt"
	"image"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/gift"
	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
)

// Augmenter transforms a resized image together with the landmark points on
// it. Implementations must keep the image size unchanged and return exactly
// as many points as they receive.
type Augmenter interface {
	Augment(img image.Image, pts []geometry.Point) (image.Image, []geometry.Point, error)
}

// AugmenterFunc adapts a plain function to Augmenter.
type AugmenterFunc func(img image.Image, pts []geometry.Point) (image.Image, []geometry.Point, error)

// Augment implements Augmenter.
func (f AugmenterFunc) Augment(img image.Image, pts []geometry.Point) (image.Image, []geometry.Point, error) {
	return f(img, pts)
}

// ItemAugmenter is an Augmenter with random draws. ForItem returns an
// augmenter whose draws depend only on the seed and the item index, so a
// parallel Fetch augments each item the same way whatever order workers run in.
type ItemAugmenter interface {
	Augmenter
	ForItem(i int) Augmenter
}

// Identity returns its inputs unchanged.
type Identity struct{}

// Augment implements Augmenter.
func (Identity) Augment(img image.Image, pts []geometry.Point) (image.Image, []geometry.Point, error) {
	return img, pts, nil
}

// HorizontalFlip mirrors the image left to right. A point on pixel column x
// moves to column width-1-x.
type HorizontalFlip struct{}

// Augment implements Augmenter.
func (HorizontalFlip) Augment(img image.Image, pts []geometry.Point) (image.Image, []geometry.Point, error) {
	g := gift.New(gift.FlipHorizontal())
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)

	w := float64(img.Bounds().Dx())
	out := make([]geometry.Point, len(pts))
	for i, p := range pts {
		out[i] = geometry.Point{X: w - 1 - p.X, Y: p.Y}
	}
	return dst, out, nil
}

// RandomFlip applies HorizontalFlip with probability P. It is safe for
// concurrent use.
type RandomFlip struct {
	P float64

	seed uint64
	mu   sync.Mutex
	rng  *rand.Rand
}

// NewRandomFlip returns a seeded RandomFlip.
func NewRandomFlip(p float64, seed uint64) *RandomFlip {
	return &RandomFlip{P: p, seed: seed, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// ForItem implements ItemAugmenter.
func (r *RandomFlip) ForItem(i int) Augmenter {
	return &RandomFlip{P: r.P, seed: r.seed, rng: rand.New(rand.NewPCG(r.seed, uint64(i)))}
}

// Augment implements Augmenter.
func (r *RandomFlip) Augment(img image.Image, pts []geometry.Point) (image.Image, []geometry.Point, error) {
	r.mu.Lock()
	flip := r.rng.Float64() < r.P
	r.mu.Unlock()
	if !flip {
		return img, pts, nil
	}
	return HorizontalFlip{}.Augment(img, pts)
}

// Photometric adjusts brightness, contrast and gamma. Points are untouched.
// Brightness and Contrast are relative changes in [-1, 1]; a Gamma of 0 or 1
// leaves gamma unchanged.
type Photometric struct {
	Brightness float64
	Contrast   float64
	Gamma      float64
}

// Augment implements Augmenter.
func (p Photometric) Augment(img image.Image, pts []geometry.Point) (image.Image, []geometry.Point, error) {
	out := img
	if p.Brightness != 0 {
		out = adjust.Brightness(out, p.Brightness)
	}
	if p.Contrast != 0 {
		out = adjust.Contrast(out, p.Contrast)
	}
	if p.Gamma > 0 && p.Gamma != 1 {
		out = adjust.Gamma(out, p.Gamma)
	}
	return out, pts, nil
}

// Jitter draws a random Photometric per call, with brightness and contrast
// uniform in [-Brightness, Brightness] and [-Contrast, Contrast].
type Jitter struct {
	Brightness float64
	Contrast   float64

	seed uint64
	mu   sync.Mutex
	rng  *rand.Rand
}

// NewJitter returns a seeded Jitter.
func NewJitter(brightness, contrast float64, seed uint64) *Jitter {
	return &Jitter{Brightness: brightness, Contrast: contrast, seed: seed, rng: rand.New(rand.NewPCG(seed, ^seed))}
}

// ForItem implements ItemAugmenter.
func (j *Jitter) ForItem(i int) Augmenter {
	return &Jitter{
		Brightness: j.Brightness,
		Contrast:   j.Contrast,
		seed:       j.seed,
		rng:        rand.New(rand.NewPCG(j.seed, uint64(i))),
	}
}

// Augment implements Augmenter.
func (j *Jitter) Augment(img image.Image, pts []geometry.Point) (image.Image, []geometry.Point, error) {
	j.mu.Lock()
	b := (2*j.rng.Float64() - 1) * j.Brightness
	c := (2*j.rng.Float64() - 1) * j.Contrast
	j.mu.Unlock()
	return Photometric{Brightness: b, Contrast: c}.Augment(img, pts)
}

// Chain applies augmenters in order.
type Chain []Augmenter

// Augment implements Augmenter.
func (c Chain) Augment(img image.Image, pts []geometry.Point) (image.Image, []geometry.Point, error) {
	var err error
	for i, a := range c {
		img, pts, err = a.Augment(img, pts)
		if err != nil {
			return nil, nil, fmt.Errorf("augmentation step %d: %w", i, err)
		}
	}
	return img, pts, nil
}

// ForItem implements ItemAugmenter by specializing every step that has
// random draws.
func (c Chain) ForItem(i int) Augmenter {
	out := make(Chain, len(c))
	for k, a := range c {
		if ia, ok := a.(ItemAugmenter); ok {
			a = ia.ForItem(i)
		}
		out[k] = a
	}
	return out
}

// Mode selects the data split and its augmentation policy.
type Mode string

const (
	ModeTrain Mode = "train"
	ModeEval  Mode = "eval"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeTrain:
		return ModeTrain, nil
	case ModeEval, "":
		return ModeEval, nil
	default:
		return "", fmt.Errorf("unknown dataset mode: %s", s)
	}
}

// DefaultAugmenter returns the policy used for a mode: random flips and mild
// photometric jitter for training, nothing for evaluation.
func DefaultAugmenter(mode Mode, seed uint64) Augmenter {
	if mode != ModeTrain {
		return Identity{}
	}
	return Chain{
		NewRandomFlip(0.5, seed),
		NewJitter(0.1, 0.1, seed+1),
	}
}
