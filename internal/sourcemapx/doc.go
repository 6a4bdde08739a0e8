// Package sourcemapx carries source map information through the printed
// JavaScript stream, intended to feed a srcmap.Store.
//
// The editor outputs hints about the correspondence between the printed
// code and the text it was parsed from inline. Such hints are marked by the
// special `\b` (0x08) magic byte, followed by a variable-length sequence of
// bytes, which can be extracted from the byte slice using ReadHint().
//
// '\b' was chosen as a magic symbol because it never occurs unescaped in
// real JavaScript sources. The editor refuses to embed hints into text that
// contains it, so it is never anything but a hint marker. See Hint type documentation for the details
// of the encoded format.
//
// The Hint type can wrap different payloads:
//
//   - Pos indicates the position in the parsed text the current location in
//     the printed code corresponds to.
//   - Identifier additionally names the identifier printed at that location.
//
// Filter is used to extract the hints from the written code stream and pass
// them to a mapping callback. It also ensures that the encoded inline hints
// don't make it into the final output, since they are not valid JS.
package sourcemapx
