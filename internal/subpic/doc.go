// Package subpic defines the shared contract for bitmap subtitle decoders.
//
// The vobsub and pgs subpackages each implement Decoder for one Codec and
// return a DecodedImage; the composite package turns that image into an
// OCR-ready bitmap without knowing which format produced it.
package subpic
