// Package imaging turns OCR inputs into decoded rasters.
//
// Every input the application accepts (an image file, the system clipboard,
// or a page bitmap rendered from a PDF) passes through Normalize, which
// produces a Raster: the decoded pixel buffer together with its dimensions and
// color mode. Normalize is a pure pass-through. It never resizes, recolors or
// writes to disk; decoded pixels are handed to the OCR engine as they are.
//
// # Supported Inputs
//
// File sources are accepted by extension (case-insensitive):
//   - .png
//   - .jpg, .jpeg
//   - .tif, .tiff
//   - .bmp
//   - .gif
//
// Any other extension fails with ErrUnsupportedFormat before the file is read.
// A file with a supported extension whose contents cannot be decoded fails the
// same way.
//
// Clipboard sources read a bitmap from the system clipboard. An empty
// clipboard, a clipboard holding something other than an image, or a
// clipboard that does not answer within the source's timeout all fail with
// ErrEmptyClipboard.
//
// # Preprocessing
//
// Preprocess is a separate, optional step that prepares a raster for
// recognition: perceptual grayscale, contrast stretch, Gaussian denoise,
// optional deskew and binarization (adaptive Gaussian or global Otsu). It
// returns a new Raster and leaves its input untouched.
//
// # Regions
//
// Crop restricts a raster to a Region given as coordinates or by name
// (ParseRegion, NamedRegion). The "auto" region is resolved from pixel
// content: DetectTextRegions scores line-sized windows of an edge map and
// Raster.Resolve crops to the padded union of the windows that look like
// text, or keeps the whole raster when none do.
//
// # Thread Safety
//
// A Raster is owned by whichever caller produced it and is never shared
// between goroutines by this package. Normalize and Preprocess hold no state
// and may be called concurrently on different inputs.
package imaging
