// Package cast implements the three deterministic casting methods: free
// text hashing, coin digits and plum-blossom time arithmetic.
package cast

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	oracle "github.com/oraclelang/oracle"
)

// Engine casts hexagrams. It holds no state; the zero value is ready to use.
type Engine struct{}

// New returns a casting engine.
func New() *Engine { return &Engine{} }

var _ oracle.Caster = (*Engine)(nil)

// Cast dispatches on in.Method. The result's CastAt is in.Time, never the
// wall clock, so equal inputs give equal results.
func (e *Engine) Cast(in oracle.Input) (oracle.CastingResult, error) {
	if err := in.Validate(); err != nil {
		return oracle.CastingResult{}, err
	}
	var (
		primary oracle.Hexagram
		moving  oracle.MovingLines
		err     error
	)
	switch in.Method {
	case oracle.MethodText:
		primary, moving, err = castText(in.Text)
	case oracle.MethodDigit:
		primary, moving, err = castDigits(in.Digits)
	case oracle.MethodTime:
		primary, moving, err = castTime(in)
	}
	if err != nil {
		return oracle.CastingResult{}, err
	}
	return oracle.NewCastingResult(in.Method, in.String(), primary, moving, in.Time), nil
}

// Normalize folds text so that visually equal questions cast the same
// hexagram: NFKC, Unicode case folding, surrounding space trimmed.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.TrimSpace(s)
}

func castText(text string) (oracle.Hexagram, oracle.MovingLines, error) {
	n := Normalize(text)
	if n == "" {
		return oracle.Hexagram{}, 0, fmt.Errorf("text is empty after normalization: %w", oracle.ErrInvalidInput)
	}
	sum := sha256.Sum256([]byte(n))

	var h oracle.Hexagram
	for i := range h {
		h[i] = oracle.Line(sum[i] & 1)
	}

	var positions []int
	switch count := sum[6] % 3; count {
	case 2:
		first := int(sum[7] % 6)
		second := (first + 1 + int(sum[8]%5)) % 6
		positions = []int{first + 1, second + 1}
	case 1:
		positions = []int{int(sum[7]%6) + 1}
	}
	moving, err := oracle.NewMovingLines(positions...)
	if err != nil {
		return oracle.Hexagram{}, 0, err
	}
	return h, moving, nil
}

// CoinLine resolves one triplet of coin digits. Odd digits count 3 (heads),
// even digits 2 (tails); the sum 6 is old yin, 7 young yang, 8 young yin
// and 9 old yang. Old lines are moving.
func CoinLine(a, b, c int) (line oracle.Line, moving bool) {
	coin := func(d int) int {
		if d%2 != 0 {
			return 3
		}
		return 2
	}
	switch coin(a) + coin(b) + coin(c) {
	case 6:
		return oracle.Yin, true
	case 7:
		return oracle.Yang, false
	case 8:
		return oracle.Yin, false
	default:
		return oracle.Yang, true
	}
}

func castDigits(digits []int) (oracle.Hexagram, oracle.MovingLines, error) {
	var (
		h         oracle.Hexagram
		positions []int
	)
	for i := range h {
		k := i * oracle.CoinsPerLine
		line, moving := CoinLine(digits[k], digits[k+1], digits[k+2])
		h[i] = line
		if moving {
			positions = append(positions, i+1)
		}
	}
	moving, err := oracle.NewMovingLines(positions...)
	if err != nil {
		return oracle.Hexagram{}, 0, err
	}
	return h, moving, nil
}

// ParseDigits reads coin digits from chat input. Digits may be separated by
// spaces or commas, or written together ("789 654" and "789654" are equal).
func ParseDigits(s string) ([]int, error) {
	var out []int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			out = append(out, int(r-'0'))
		case unicode.IsSpace(r) || r == ',' || r == '，' || r == '、':
		default:
			return nil, fmt.Errorf("unexpected character %q in digits: %w", r, oracle.ErrInvalidInput)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no digits: %w", oracle.ErrInvalidInput)
	}
	return out, nil
}

// castTime is plum-blossom casting (梅花易数) from the year branch, month,
// day and double-hour of the timestamp in its own location.
func castTime(in oracle.Input) (oracle.Hexagram, oracle.MovingLines, error) {
	t := in.Time
	yearBranch := mod(t.Year()-4, 12) + 1
	hourBranch := (t.Hour()+1)/2%12 + 1
	base := yearBranch + int(t.Month()) + t.Day()

	upper, err := oracle.TrigramFromEarlyHeaven(wrap(base, 8))
	if err != nil {
		return oracle.Hexagram{}, 0, err
	}
	lower, err := oracle.TrigramFromEarlyHeaven(wrap(base+hourBranch, 8))
	if err != nil {
		return oracle.Hexagram{}, 0, err
	}
	moving, err := oracle.NewMovingLines(wrap(base+hourBranch, 6))
	if err != nil {
		return oracle.Hexagram{}, 0, err
	}
	return oracle.HexagramFromTrigrams(upper, lower), moving, nil
}

func mod(a, n int) int { return (a%n + n) % n }

// wrap maps a to 1..n with a remainder of zero meaning n.
func wrap(a, n int) int {
	if r := mod(a, n); r != 0 {
		return r
	}
	return n
}
