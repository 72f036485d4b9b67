package chunker

import "strings"

const paragraphSeparator = "\n\n"

// sentenceDelimiters mark boundaries a sentence split may break after. The
// delimiter stays attached to the sentence that ends with it so that
// concatenating the pieces reproduces the paragraph byte for byte.
var sentenceDelimiters = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// Chunk splits text into ordered segments of at most maxSize characters,
// preferring paragraph boundaries and falling back to sentence boundaries
// for paragraphs that alone exceed maxSize.
//
// Separators are kept inside the segments, so concatenating the returned
// segments in order reconstructs text exactly. A single sentence longer than
// maxSize is never subdivided further and may push one segment over the
// limit; that is an accepted policy gap, not a bug.
func Chunk(text string, maxSize int) []string {
	if maxSize <= 0 || len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, paragraph := range splitAfterAll(text, paragraphSeparator) {
		if current.Len()+len(paragraph) <= maxSize {
			current.WriteString(paragraph)
			continue
		}

		// Overflow. A substantial chunk is flushed whole before the
		// paragraph is reconsidered against an empty accumulator.
		if current.Len() > maxSize/2 {
			flush()
			if len(paragraph) <= maxSize {
				current.WriteString(paragraph)
				continue
			}
		}

		if len(paragraph) > maxSize {
			// Break the oversized paragraph at sentence boundaries and pack
			// greedily; no substantial gate here.
			for _, sentence := range splitSentences(paragraph) {
				if current.Len() > 0 && current.Len()+len(sentence) > maxSize {
					flush()
				}
				current.WriteString(sentence)
			}
			continue
		}

		// Small accumulator plus a paragraph that fits on its own: flush
		// what we have, accepting an undersized chunk, and start over.
		flush()
		current.WriteString(paragraph)
	}

	flush()

	if len(chunks) == 0 {
		return []string{""}
	}
	return chunks
}

// splitSentences splits a paragraph after sentence-ending punctuation,
// keeping each delimiter attached to the sentence it terminates. Text with
// no recognized boundary comes back as a single sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		for _, delim := range sentenceDelimiters {
			if strings.HasPrefix(text[i:], delim) {
				end := i + len(delim)
				sentences = append(sentences, text[start:end])
				start = end
				i = end - 1
				break
			}
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// splitAfterAll splits text after every occurrence of sep, keeping sep
// attached to the preceding piece.
func splitAfterAll(text, sep string) []string {
	return strings.SplitAfter(text, sep)
}
