// Package predict turns a fundus image into a fovea coordinate.
//
// A Predictor resizes the image to the model input shape, runs an Estimator
// to obtain a score map, decodes the map with a heatmap.Decoder and maps the
// decoded grid cell back to original image pixels.
//
// The Estimator is the only model-specific piece. Any network runtime can be
// plugged in by implementing Estimate; only the first batch entry and first
// channel of its output are used. DarknessEstimator is a model-free baseline
// that scores dark regions inside the fundus field of view.
//
// Cascade chains two predictors: a coarse pass over the whole image and a
// fine pass over a window cropped around the coarse estimate.
package predict
