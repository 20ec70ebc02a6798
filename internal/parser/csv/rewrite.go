package csv

import (
	"bufio"
	"bytes"
	"io"
)

const rewriteChunk = 64 * 1024

// streamingRewriter replaces every occurrence of pat with repl while
// streaming. The last len(pat)-1 bytes of each chunk are held back and
// prepended to the next one so matches spanning a chunk boundary are found.
type streamingRewriter struct {
	br    *bufio.Reader
	pat   []byte
	repl  []byte
	chunk []byte
	carry []byte
	out   bytes.Buffer
	eof   bool
}

func newStreamingRewriter(r io.Reader, pat, repl []byte) *streamingRewriter {
	return &streamingRewriter{
		br:    bufio.NewReaderSize(r, rewriteChunk),
		pat:   pat,
		repl:  repl,
		chunk: make([]byte, rewriteChunk),
		carry: make([]byte, 0, max(len(pat)-1, 0)),
	}
}

// Read implements io.Reader.
func (sr *streamingRewriter) Read(p []byte) (int, error) {
	for sr.out.Len() == 0 {
		if sr.eof {
			return 0, io.EOF
		}
		if err := sr.fill(); err != nil {
			return 0, err
		}
	}
	return sr.out.Read(p)
}

// fill reads one chunk from the source and moves everything that can no
// longer take part in a match into out.
func (sr *streamingRewriter) fill() error {
	n, rerr := sr.br.Read(sr.chunk)
	if n > 0 {
		block := append(sr.carry, sr.chunk[:n]...)
		block = bytes.ReplaceAll(block, sr.pat, sr.repl)

		keep := len(sr.pat) - 1
		if keep > 0 && len(block) > keep {
			sr.out.Write(block[:len(block)-keep])
			sr.carry = append(sr.carry[:0:0], block[len(block)-keep:]...)
		} else if keep > 0 {
			sr.carry = append(sr.carry[:0:0], block...)
		} else {
			sr.out.Write(block)
			sr.carry = sr.carry[:0]
		}
	}

	switch {
	case rerr == io.EOF:
		sr.out.Write(sr.carry)
		sr.carry = nil
		sr.eof = true
	case rerr != nil:
		return rerr
	}
	return nil
}
