// Package imaging loads fundus images and converts them into model inputs.
//
// This package covers the image side of the fovea pipeline: reading image
// files (with an optional concurrent-safe cache), resizing to the model input
// shape, converting pixels into a channel-first float tensor, cropping a
// window around a point for cascade refinement, and drawing a located point
// back onto an image for inspection.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based with (0,0) at the
// top-left corner, X increasing rightward and Y increasing downward. This is
// the same convention the heatmap and geometry packages use.
//
// # Tensor Layout
//
// Tensors are channel-first (C, H, W) float32 arrays in RGB order with values
// scaled to [0, 1]. Alpha is discarded.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless
// and never modify their input images.
package imaging
