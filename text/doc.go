// Package text normalises the short labels found in schedule cells.
//
// Room labels, category headers and session names arrive from several
// authors with different casing, full-width characters, stray line breaks
// and decorative punctuation. Comparisons across sources go through [Fold],
// which applies Unicode NFKC normalisation and case folding and collapses
// whitespace:
//
//	text.Fold("ＲＡＮ1  Main\nHall") // "ran1 main hall"
//
// # Tokens
//
// [Tokens] splits a label into folded words and numbers, and
// [ContainsTokens] reports whether every token of one label occurs in
// another. Together they match "Room A" against "Main Hall, Room A (2F)".
//
// # Display forms
//
// [Collapse] keeps the original characters but joins lines and squeezes
// runs of whitespace, which is the form labels take in output.
package text
