// Package dataset turns fovea annotations and fundus images into training
// pairs: a model input tensor and a Gaussian target heatmap.
//
// Annotation tables are CSV files with the columns ImageName, Fovea_X and
// Fovea_Y (the older ImgName header is accepted too). Several tables may be
// loaded together; their rows are concatenated in argument order without
// de-duplication.
//
// Images are resolved through an Index built once from the image directory.
// Every annotation name must map to exactly one file, either by exact file
// name or by exact name without extension. Missing and ambiguous names fail
// the build, naming each offending identifier.
//
// # Errors
//
// Problems that make a whole run meaningless (bad annotation rows, missing
// images, invalid geometry) fail at construction time. Fetch treats a
// failure while producing a single item as local to that item: it is
// reported in Batch.Failed and the remaining items are still produced.
package dataset
