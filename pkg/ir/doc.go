// Package ir defines the intermediate representation of a parametric part:
// parameters, ordered features, sketches and dimensional chains.
//
// A Part is produced wholesale by the DSL transformer (or by decoding a
// serialized Document) and is thereafter treated as an immutable value.
// Every edit produces a new Part; the compiler and validator only read.
//
// Feature specs, sketch entities and argument values are closed sum types.
// Each is an interface with an unexported marker method, so only this
// package can add variants and consumers switch over them exhaustively.
package ir
