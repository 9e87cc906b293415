package annotation

// Chunk is one piece of a document split for size-limited model input,
// with its half-open rune interval in the original text. Chunk ranges
// count runes, not bytes, so on non-ASCII text they are not directly
// comparable to Annotation ranges, which index the document in bytes.
type Chunk struct {
	Text  string
	Range Span
}

// ChunkTextBySize splits text into chunks of at most maxChars runes,
// preferring to cut just after the last newline in the window, then the
// last space, and only hard-cutting when a window has neither.
// Concatenating the chunk texts reproduces the input exactly, and each
// chunk's range re-slices the input to that chunk's text.
func ChunkTextBySize(text string, maxChars int) []Chunk {
	if text == "" || maxChars <= 0 {
		return nil
	}
	runes := []rune(text)
	var chunks []Chunk
	pos := 0
	for pos < len(runes) {
		end := min(pos+maxChars, len(runes))
		cut := end
		if end < len(runes) {
			cut = -1
			for i := end - 1; i >= pos; i-- {
				if runes[i] == '\n' {
					cut = i + 1
					break
				}
			}
			if cut <= pos {
				cut = -1
				for i := end - 1; i >= pos; i-- {
					if runes[i] == ' ' {
						cut = i + 1
						break
					}
				}
			}
			if cut <= pos {
				cut = end
			}
		}
		chunks = append(chunks, Chunk{
			Text:  string(runes[pos:cut]),
			Range: Span{Start: pos, End: cut},
		})
		pos = cut
	}
	return chunks
}
