// Package geometry converts landmark coordinates between the three spaces the
// fovea pipeline works in.
//
// # Coordinate Spaces
//
//   - Original space: pixels of the image as it was read from disk.
//   - Model space: pixels of the image after it was resized to the model
//     input size.
//   - Grid space: heatmap cells, model-space pixels divided by the output
//     stride.
//
// All spaces share the image convention used elsewhere in this module: the
// origin is the top-left corner, X grows rightward (columns) and Y grows
// downward (rows).
//
// # Quantization
//
// ToGridSpace floors each coordinate, so a grid cell covers OutputStride
// model-space pixels along each axis. Mapping a grid point back with
// FromGridSpace returns the top-left corner of that cell, which means a full
// round trip may move a point by up to OutputStride model-space pixels per
// axis. This is the localization resolution floor of the whole system, not a
// rounding error.
package geometry
