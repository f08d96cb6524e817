package algorithm

import (
	"iter"
	"math"
	"strings"

	"digestCracker/internal/core/domain"

	"github.com/pkg/errors"
)

// Space is the set of fixed-length strings over Alphabet, ordered
// lexicographically. Alphabet bytes must be strictly increasing so that
// position order and string order agree.
type Space struct {
	Alphabet string
	Length   int
	size     int64
}

func DefaultSpace() Space {
	s, _ := NewSpace(domain.CharsetLower, domain.DefaultPasswordLength)
	return s
}

func NewSpace(alphabet string, length int) (Space, error) {
	if alphabet == "" {
		alphabet = domain.CharsetLower
	}
	if length == 0 {
		length = domain.DefaultPasswordLength
	}
	if length < 0 {
		return Space{}, errors.Wrapf(domain.ErrInvalidSearchSpace, "length %d", length)
	}
	for i := 1; i < len(alphabet); i++ {
		if alphabet[i] <= alphabet[i-1] {
			return Space{}, errors.Wrapf(domain.ErrInvalidSearchSpace,
				"alphabet %q must be strictly increasing", alphabet)
		}
	}

	size := int64(1)
	base := int64(len(alphabet))
	for i := 0; i < length; i++ {
		if size > math.MaxInt64/base {
			return Space{}, errors.Wrapf(domain.ErrInvalidSearchSpace,
				"%d^%d candidates overflow", base, length)
		}
		size *= base
	}

	return Space{Alphabet: alphabet, Length: length, size: size}, nil
}

func (s Space) Size() int64 {
	return s.size
}

func (s Space) Base() int {
	return len(s.Alphabet)
}

// CandidateAt decomposes p into base-|Alphabet| digits, most significant first.
func (s Space) CandidateAt(p int64) (string, error) {
	if p < 0 || p >= s.size {
		return "", errors.Wrapf(domain.ErrPositionOutOfRange, "position %d not in [0, %d)", p, s.size)
	}
	buf := make([]byte, s.Length)
	s.fill(buf, p)
	return string(buf), nil
}

func (s Space) PositionOf(candidate string) (int64, error) {
	if len(candidate) != s.Length {
		return 0, errors.Wrapf(domain.ErrInvalidCandidate, "%q has length %d, want %d",
			candidate, len(candidate), s.Length)
	}
	base := int64(s.Base())
	var p int64
	for i := 0; i < len(candidate); i++ {
		d := strings.IndexByte(s.Alphabet, candidate[i])
		if d < 0 {
			return 0, errors.Wrapf(domain.ErrInvalidCandidate, "%q contains %q", candidate, candidate[i])
		}
		p = p*base + int64(d)
	}
	return p, nil
}

// Enumerate yields every candidate in lexicographic order. Each range over
// the returned sequence starts again from the first candidate.
func (s Space) Enumerate() iter.Seq[string] {
	return s.EnumerateFrom(0)
}

func (s Space) EnumerateFrom(start int64) iter.Seq[string] {
	return func(yield func(string) bool) {
		c := s.Cursor(start, 1)
		for c.Next() {
			if !yield(string(c.Candidate())) {
				return
			}
		}
	}
}

func (s Space) Cursor(start, stride int64) *Cursor {
	return newCursor(s, start, stride)
}

func (s Space) fill(buf []byte, p int64) {
	base := int64(s.Base())
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = s.Alphabet[p%base]
		p /= base
	}
}

// Cursor walks positions start, start+stride, start+2*stride, ... below the
// space size. Each step adds the stride's digits with carry, so a step costs
// O(Length) regardless of the stride.
type Cursor struct {
	space   Space
	pos     int64
	stride  int64
	digits  []int
	step    []int
	buf     []byte
	started bool
	done    bool
}

func newCursor(s Space, start, stride int64) *Cursor {
	if stride < 1 {
		stride = 1
	}
	c := &Cursor{
		space:  s,
		pos:    start,
		stride: stride,
		digits: make([]int, s.Length),
		step:   make([]int, s.Length),
		buf:    make([]byte, s.Length),
	}
	if start < 0 || start >= s.size {
		c.done = true
		return c
	}

	base := int64(s.Base())
	for i, p := s.Length-1, start; i >= 0; i-- {
		c.digits[i] = int(p % base)
		c.buf[i] = s.Alphabet[c.digits[i]]
		p /= base
	}
	// strides at or above the space size never produce a second position
	for i, p := s.Length-1, stride%s.size; i >= 0; i-- {
		c.step[i] = int(p % base)
		p /= base
	}
	return c
}

func (c *Cursor) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.started = true
		return true
	}
	if c.stride >= c.space.size-c.pos {
		c.done = true
		return false
	}
	c.pos += c.stride

	base := c.space.Base()
	carry := 0
	for i := len(c.digits) - 1; i >= 0; i-- {
		if c.step[i] == 0 && carry == 0 {
			continue
		}
		d := c.digits[i] + c.step[i] + carry
		carry = 0
		if d >= base {
			d -= base
			carry = 1
		}
		c.digits[i] = d
		c.buf[i] = c.space.Alphabet[d]
	}
	return true
}

func (c *Cursor) Position() int64 {
	return c.pos
}

// Candidate returns the current candidate. The slice is reused by Next.
func (c *Cursor) Candidate() []byte {
	return c.buf
}
