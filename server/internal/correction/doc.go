// Package correction implements the score correction rule: a lookup from a
// driver's canonical name to a multiplier applied to the raw delivery total
// before ranking.
//
// Table is built from configuration at startup (and rebuilt on config reload);
// names are matched after Unicode NFC normalisation, whitespace collapsing and
// case folding, so "Rui Varela", "rui  varela" and "RUI VARELA" are one
// identity. Drivers absent from the table keep a multiplier of 1.
package correction
