package oracle

import (
	"fmt"
	"strings"
)

// Line is a single stroke of a hexagram.
type Line uint8

const (
	Yin  Line = 0
	Yang Line = 1
)

// Flip returns the opposite line.
func (l Line) Flip() Line { return l ^ 1 }

func (l Line) String() string {
	if l == Yang {
		return "yang"
	}
	return "yin"
}

// Trigram is a three-line figure. Bit i holds line i+1 counted from the bottom.
type Trigram uint8

// The eight trigrams, valued by their line bits (bottom line = bit 0).
const (
	Kun  Trigram = 0b000 // ☷ earth
	Zhen Trigram = 0b001 // ☳ thunder
	Kan  Trigram = 0b010 // ☵ water
	Dui  Trigram = 0b011 // ☱ lake
	Gen  Trigram = 0b100 // ☶ mountain
	Li   Trigram = 0b101 // ☲ fire
	Xun  Trigram = 0b110 // ☴ wind
	Qian Trigram = 0b111 // ☰ heaven
)

type trigramInfo struct {
	symbol string
	name   string
	image  string
	early  int // Early Heaven (Fu Xi) number used by plum-blossom casting
}

var trigrams = [8]trigramInfo{
	Kun:  {"☷", "坤", "地", 8},
	Zhen: {"☳", "震", "雷", 4},
	Kan:  {"☵", "坎", "水", 6},
	Dui:  {"☱", "兑", "泽", 2},
	Gen:  {"☶", "艮", "山", 7},
	Li:   {"☲", "离", "火", 3},
	Xun:  {"☴", "巽", "风", 5},
	Qian: {"☰", "乾", "天", 1},
}

func (t Trigram) Symbol() string { return trigrams[t&7].symbol }
func (t Trigram) Name() string   { return trigrams[t&7].name }
func (t Trigram) Image() string  { return trigrams[t&7].image }

// EarlyHeaven returns the trigram's Fu Xi sequence number (乾1 … 坤8).
func (t Trigram) EarlyHeaven() int { return trigrams[t&7].early }

// TrigramFromEarlyHeaven maps an Early Heaven number 1..8 to its trigram.
func TrigramFromEarlyHeaven(n int) (Trigram, error) {
	for i, info := range trigrams {
		if info.early == n {
			return Trigram(i), nil
		}
	}
	return 0, fmt.Errorf("early heaven number %d: %w", n, ErrInvalidInput)
}

func (t Trigram) String() string { return t.Symbol() + t.Name() }

// kingWen[upper][lower] is the King Wen sequence number of the hexagram
// formed by the two trigrams.
var kingWen = [8][8]int{
	Kun:  {Kun: 2, Zhen: 24, Kan: 7, Dui: 19, Gen: 15, Li: 36, Xun: 46, Qian: 11},
	Zhen: {Kun: 16, Zhen: 51, Kan: 40, Dui: 54, Gen: 62, Li: 55, Xun: 32, Qian: 34},
	Kan:  {Kun: 8, Zhen: 3, Kan: 29, Dui: 60, Gen: 39, Li: 63, Xun: 48, Qian: 5},
	Dui:  {Kun: 45, Zhen: 17, Kan: 47, Dui: 58, Gen: 31, Li: 49, Xun: 28, Qian: 43},
	Gen:  {Kun: 23, Zhen: 27, Kan: 4, Dui: 41, Gen: 52, Li: 22, Xun: 18, Qian: 26},
	Li:   {Kun: 35, Zhen: 21, Kan: 64, Dui: 38, Gen: 56, Li: 30, Xun: 50, Qian: 14},
	Xun:  {Kun: 20, Zhen: 42, Kan: 59, Dui: 61, Gen: 53, Li: 37, Xun: 57, Qian: 9},
	Qian: {Kun: 12, Zhen: 25, Kan: 6, Dui: 10, Gen: 33, Li: 13, Xun: 44, Qian: 1},
}

// byIndex is the inverse of kingWen: byIndex[n] holds the line bits of hexagram n.
var byIndex [65]uint8

func init() {
	for upper := range kingWen {
		for lower, n := range kingWen[upper] {
			byIndex[n] = uint8(upper)<<3 | uint8(lower)
		}
	}
}

// Hexagram is six lines ordered bottom to top; Hexagram[0] is the first line.
type Hexagram [6]Line

// HexagramFromBits builds a hexagram from a 6-bit value (bit 0 = bottom line).
func HexagramFromBits(b uint8) Hexagram {
	var h Hexagram
	for i := range h {
		h[i] = Line(b >> i & 1)
	}
	return h
}

// HexagramFromTrigrams stacks upper over lower.
func HexagramFromTrigrams(upper, lower Trigram) Hexagram {
	return HexagramFromBits(uint8(upper&7)<<3 | uint8(lower&7))
}

// HexagramByIndex returns the hexagram with King Wen number n (1..64).
func HexagramByIndex(n int) (Hexagram, error) {
	if n < 1 || n > 64 {
		return Hexagram{}, fmt.Errorf("hexagram index %d out of range: %w", n, ErrDataIntegrity)
	}
	return HexagramFromBits(byIndex[n]), nil
}

// Bits packs the lines into a 6-bit value.
func (h Hexagram) Bits() uint8 {
	var b uint8
	for i, l := range h {
		b |= uint8(l&1) << i
	}
	return b
}

// Lower returns the trigram made of lines 1–3.
func (h Hexagram) Lower() Trigram { return Trigram(h.Bits() & 7) }

// Upper returns the trigram made of lines 4–6.
func (h Hexagram) Upper() Trigram { return Trigram(h.Bits() >> 3) }

// Index returns the King Wen sequence number (1..64).
func (h Hexagram) Index() int { return kingWen[h.Upper()][h.Lower()] }

// Symbol returns the Unicode hexagram character (U+4DC0 block, King Wen order).
func (h Hexagram) Symbol() string { return string(rune(0x4DC0 + h.Index() - 1)) }

// Flip returns a copy with every position in m inverted.
func (h Hexagram) Flip(m MovingLines) Hexagram {
	out := h
	for _, p := range m.Positions() {
		out[p-1] = out[p-1].Flip()
	}
	return out
}

// LineLabel returns the traditional name of the line at position (1..6),
// e.g. 初九, 六二, 上六.
func (h Hexagram) LineLabel(position int) string {
	if position < 1 || position > 6 {
		return ""
	}
	num := "六"
	if h[position-1] == Yang {
		num = "九"
	}
	switch position {
	case 1:
		return "初" + num
	case 6:
		return "上" + num
	default:
		return num + [...]string{"", "", "二", "三", "四", "五"}[position]
	}
}

func (h Hexagram) String() string {
	var sb strings.Builder
	for _, l := range h {
		sb.WriteByte('0' + byte(l))
	}
	return sb.String()
}

// MovingLines is the set of changing positions of a casting. Bit i holds position i+1.
type MovingLines uint8

// NewMovingLines builds a set from 1-based positions.
func NewMovingLines(positions ...int) (MovingLines, error) {
	var m MovingLines
	for _, p := range positions {
		if p < 1 || p > 6 {
			return 0, fmt.Errorf("moving line position %d: %w", p, ErrInvalidInput)
		}
		m |= 1 << (p - 1)
	}
	return m, nil
}

// Has reports whether position p (1..6) is moving.
func (m MovingLines) Has(p int) bool {
	return p >= 1 && p <= 6 && m&(1<<(p-1)) != 0
}

// Positions returns the moving positions in ascending order.
func (m MovingLines) Positions() []int {
	var out []int
	for p := 1; p <= 6; p++ {
		if m.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of moving lines.
func (m MovingLines) Len() int { return len(m.Positions()) }

// Empty reports whether no line is moving.
func (m MovingLines) Empty() bool { return m&0x3f == 0 }
