package services

// DefaultMinStringLength is the shortest printable run counted as a string
const DefaultMinStringLength = 4

const (
	printableLow  = 0x20
	printableHigh = 0x7E
)

// StringScanner counts maximal runs of printable ASCII. It only keeps the
// length of the run in progress, so memory stays constant however much is
// written. A run may span Write calls.
type StringScanner struct {
	minLen int
	run    int
	count  int
}

// NewStringScanner creates a scanner; minLen below 1 uses the default
func NewStringScanner(minLen int) *StringScanner {
	if minLen < 1 {
		minLen = DefaultMinStringLength
	}
	return &StringScanner{minLen: minLen}
}

// Write scans p. It never fails.
func (s *StringScanner) Write(p []byte) (int, error) {
	for _, b := range p {
		if b >= printableLow && b <= printableHigh {
			s.run++
			continue
		}
		s.flush()
	}
	return len(p), nil
}

func (s *StringScanner) flush() {
	if s.run >= s.minLen {
		s.count++
	}
	s.run = 0
}

// Count returns the number of qualifying runs, including one still open at
// the end of the input.
func (s *StringScanner) Count() int {
	if s.run >= s.minLen {
		return s.count + 1
	}
	return s.count
}

// CountStrings counts printable runs of at least minLen bytes in data
func CountStrings(data []byte, minLen int) int {
	s := NewStringScanner(minLen)
	_, _ = s.Write(data)
	return s.Count()
}
