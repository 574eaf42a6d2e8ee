package invoice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

// FormatInvoiceNumber expands a number template for one sequence value.
//
// Tokens: {YYYY} {YY} {MM} {DD} from issuedAt, {SEQ} for the bare sequence
// and {SEQn} for the sequence zero-padded to n digits.
func FormatInvoiceNumber(template string, issuedAt time.Time, seq int) (string, error) {
	if template == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}

	out := template
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))
	out = strings.ReplaceAll(out, "{SEQ}", strconv.Itoa(seq))
	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in invoice number: %s", out)
	}
	return out, nil
}

// numberTemplate appends the sequence token to a configured prefix.
func numberTemplate(prefix string, width int) string {
	if width <= 0 {
		return prefix + "{SEQ}"
	}
	return fmt.Sprintf("%s{SEQ%d}", prefix, width)
}

// sequencer issues one number per facility, in order of first request.
type sequencer struct {
	template string
	issuedAt time.Time
	next     int
	issued   map[string]string
	first    string
}

func newSequencer(prefix string, width, start int, issuedAt time.Time) *sequencer {
	if start <= 0 {
		start = 1
	}
	return &sequencer{
		template: numberTemplate(prefix, width),
		issuedAt: issuedAt,
		next:     start,
		issued:   make(map[string]string),
	}
}

func (s *sequencer) numberFor(facility string) (string, error) {
	if n, ok := s.issued[facility]; ok {
		return n, nil
	}
	n, err := FormatInvoiceNumber(s.template, s.issuedAt, s.next)
	if err != nil {
		return "", err
	}
	s.next++
	s.issued[facility] = n
	if s.first == "" {
		s.first = n
	}
	return n, nil
}
