package cast

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	oracle "github.com/oraclelang/oracle"
)

func repeat(triplet []int, n int) []int {
	var out []int
	for range n {
		out = append(out, triplet...)
	}
	return out
}

func TestTextDeterministic(t *testing.T) {
	e := New()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := oracle.Input{Method: oracle.MethodText, Text: "今天运势如何", Time: at}

	first, err := e.Cast(in)
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	for range 10 {
		got, err := e.Cast(in)
		if err != nil {
			t.Fatalf("Cast: %v", err)
		}
		if diff := cmp.Diff(first, got); diff != "" {
			t.Fatalf("cast not deterministic (-first +got):\n%s", diff)
		}
	}
	if first.Moving.Len() > 2 {
		t.Errorf("text casting has %d moving lines, want at most 2", first.Moving.Len())
	}
	if first.Secondary != first.Primary.Flip(first.Moving) {
		t.Error("secondary is not primary with moving lines flipped")
	}
}

func TestTextNormalization(t *testing.T) {
	e := New()
	tests := []struct{ a, b string }{
		{"今天运势如何", "  今天运势如何\n"},
		{"Will it rain", "will it rain"},
		{"ＡＢＣ１２３", "abc123"},
		{"Straße", "STRASSE"},
	}
	for _, tt := range tests {
		ra, err := e.Cast(oracle.Input{Method: oracle.MethodText, Text: tt.a})
		if err != nil {
			t.Fatalf("Cast(%q): %v", tt.a, err)
		}
		rb, err := e.Cast(oracle.Input{Method: oracle.MethodText, Text: tt.b})
		if err != nil {
			t.Fatalf("Cast(%q): %v", tt.b, err)
		}
		if ra.Primary != rb.Primary || ra.Moving != rb.Moving {
			t.Errorf("%q and %q cast differently: %s/%v vs %s/%v", tt.a, tt.b, ra.Primary, ra.Moving.Positions(), rb.Primary, rb.Moving.Positions())
		}
	}
}

func TestTextMovingLinesDistinct(t *testing.T) {
	e := New()
	questions := []string{"a", "b", "c", "事业", "感情", "财运", "健康", "出行", "考试", "搬家", "合作", "投资"}
	for _, q := range questions {
		res, err := e.Cast(oracle.Input{Method: oracle.MethodText, Text: q})
		if err != nil {
			t.Fatalf("Cast(%q): %v", q, err)
		}
		pos := res.Moving.Positions()
		if len(pos) > 2 {
			t.Errorf("%q: %d moving lines", q, len(pos))
		}
		for _, p := range pos {
			if p < 1 || p > 6 {
				t.Errorf("%q: moving position %d out of range", q, p)
			}
		}
	}
}

func TestTextEmpty(t *testing.T) {
	e := New()
	for _, s := range []string{"", "   ", "　"} {
		_, err := e.Cast(oracle.Input{Method: oracle.MethodText, Text: s})
		if !errors.Is(err, oracle.ErrInvalidInput) {
			t.Errorf("Cast(%q) err = %v, want ErrInvalidInput", s, err)
		}
	}
}

func TestCoinLine(t *testing.T) {
	tests := []struct {
		a, b, c int
		line    oracle.Line
		moving  bool
	}{
		{7, 8, 9, oracle.Yin, false}, // 3+2+3 = 8
		{2, 4, 6, oracle.Yin, true},  // 6
		{1, 3, 5, oracle.Yang, true}, // 9
		{1, 2, 4, oracle.Yang, false},
		{0, 0, 0, oracle.Yin, true},
	}
	for _, tt := range tests {
		line, moving := CoinLine(tt.a, tt.b, tt.c)
		if line != tt.line || moving != tt.moving {
			t.Errorf("CoinLine(%d,%d,%d) = %v,%v want %v,%v", tt.a, tt.b, tt.c, line, moving, tt.line, tt.moving)
		}
	}
}

func TestDigits(t *testing.T) {
	e := New()
	tests := []struct {
		name      string
		digits    []int
		primary   int
		secondary int
		moving    []int
	}{
		{"all old yang", repeat([]int{1, 3, 5}, 6), 1, 2, []int{1, 2, 3, 4, 5, 6}},
		{"all young yin", repeat([]int{7, 8, 9}, 6), 2, 2, nil},
		{"all young yang", repeat([]int{1, 2, 4}, 6), 1, 1, nil},
		{
			// lines bottom to top: yang, yang, yang, yin, yin, yin(moving)
			"tai with moving top",
			append(repeat([]int{1, 2, 4}, 3), 7, 8, 9, 7, 8, 9, 2, 4, 6),
			11, 26, []int{6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Cast(oracle.Input{Method: oracle.MethodDigit, Digits: tt.digits})
			if err != nil {
				t.Fatalf("Cast: %v", err)
			}
			if got := res.Primary.Index(); got != tt.primary {
				t.Errorf("primary = %d, want %d", got, tt.primary)
			}
			if got := res.Secondary.Index(); got != tt.secondary {
				t.Errorf("secondary = %d, want %d", got, tt.secondary)
			}
			if diff := cmp.Diff(tt.moving, res.Moving.Positions()); diff != "" {
				t.Errorf("moving (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDigitsInvalid(t *testing.T) {
	e := New()
	tests := []struct {
		name   string
		digits []int
	}{
		{"empty", nil},
		{"not multiple of three", []int{1, 2, 3, 4}},
		{"one triplet", []int{7, 8, 9}},
		{"seven triplets", repeat([]int{7, 8, 9}, 7)},
		{"out of range", append(repeat([]int{7, 8, 9}, 5), 1, 2, 10)},
		{"negative", append(repeat([]int{7, 8, 9}, 5), -1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Cast(oracle.Input{Method: oracle.MethodDigit, Digits: tt.digits})
			if !errors.Is(err, oracle.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestParseDigits(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"7 8 9", []int{7, 8, 9}, false},
		{"789,654", []int{7, 8, 9, 6, 5, 4}, false},
		{"7，8、9", []int{7, 8, 9}, false},
		{"  ", nil, true},
		{"7 8 x", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseDigits(tt.in)
		if tt.wantErr {
			if !errors.Is(err, oracle.ErrInvalidInput) {
				t.Errorf("ParseDigits(%q) err = %v, want ErrInvalidInput", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDigits(%q): %v", tt.in, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseDigits(%q) (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestTimeHandComputed(t *testing.T) {
	// 2024-03-15 10:30 UTC+8: year branch 5 (辰), hour branch 6 (巳).
	// Upper (5+3+15) mod 8 = 7 艮, lower (23+6) mod 8 = 5 巽,
	// moving 29 mod 6 = 5. 山风蛊 changes to 巽为风.
	loc := time.FixedZone("UTC+8", 8*3600)
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, loc)

	res, err := New().Cast(oracle.Input{Method: oracle.MethodTime, Time: at})
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if res.Primary.Upper() != oracle.Gen || res.Primary.Lower() != oracle.Xun {
		t.Errorf("trigrams = %s over %s, want 艮 over 巽", res.Primary.Upper(), res.Primary.Lower())
	}
	if got := res.Primary.Index(); got != 18 {
		t.Errorf("primary = %d, want 18", got)
	}
	if diff := cmp.Diff([]int{5}, res.Moving.Positions()); diff != "" {
		t.Errorf("moving (-want +got):\n%s", diff)
	}
	if got := res.Secondary.Index(); got != 57 {
		t.Errorf("secondary = %d, want 57", got)
	}
	if !res.CastAt.Equal(at) {
		t.Errorf("CastAt = %v, want %v", res.CastAt, at)
	}
}

func TestTimeUsesOwnLocation(t *testing.T) {
	// The same instant is 23:30 on the 14th in UTC and 07:30 on the 15th in UTC+8.
	instant := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC)
	e := New()
	utc, err := e.Cast(oracle.Input{Method: oracle.MethodTime, Time: instant})
	if err != nil {
		t.Fatal(err)
	}
	cst, err := e.Cast(oracle.Input{Method: oracle.MethodTime, Time: instant.In(time.FixedZone("UTC+8", 8*3600))})
	if err != nil {
		t.Fatal(err)
	}
	if utc.Primary == cst.Primary && utc.Moving == cst.Moving {
		t.Error("expected different castings for different local dates")
	}
}

func TestTimeZero(t *testing.T) {
	_, err := New().Cast(oracle.Input{Method: oracle.MethodTime})
	if !errors.Is(err, oracle.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUnknownMethod(t *testing.T) {
	_, err := New().Cast(oracle.Input{Method: "tarot", Text: "x"})
	if !errors.Is(err, oracle.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
