// Package textutil derives output file name parts from input paths and
// language codes.
package textutil
