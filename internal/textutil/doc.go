// Package textutil provides token-based text fingerprinting and similarity
// used to deduplicate near-identical on-screen text across video frames.
//
// Fingerprints are normalized term-frequency vectors. Tokenization lowercases
// text, splits on non-alphanumeric characters, and filters tokens shorter
// than 3 characters.
package textutil
