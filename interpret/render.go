package interpret

import (
	"fmt"
	"strings"

	oracle "github.com/oraclelang/oracle"
)

// Style selects how the hexagram figure is drawn.
type Style string

const (
	// StyleSimple draws the Unicode hexagram symbols only.
	StyleSimple Style = "simple"
	// StyleTraditional names the hexagrams.
	StyleTraditional Style = "traditional"
	// StyleDetailed draws every line, top to bottom, marking moving lines.
	StyleDetailed Style = "detailed"
)

// ParseStyle accepts a style name; empty means StyleDetailed.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StyleDetailed, nil
	case StyleSimple, StyleTraditional, StyleDetailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown display style %q: %w", s, oracle.ErrInvalidInput)
}

const (
	solidStroke  = "━━━"
	brokenStroke = "━ ━"
	arrow        = "→"
)

func stroke(l oracle.Line) string {
	if l == oracle.Yang {
		return solidStroke
	}
	return brokenStroke
}

// Render draws the figure of res in the given style.
func (i *Interpreter) Render(res oracle.CastingResult, style Style) (string, error) {
	switch style {
	case StyleSimple:
		if !res.Changed() {
			return res.Primary.Symbol(), nil
		}
		return res.Primary.Symbol() + " " + arrow + " " + res.Secondary.Symbol(), nil

	case StyleTraditional:
		primary, err := i.entry(res.Primary.Index())
		if err != nil {
			return "", err
		}
		if !res.Changed() {
			return primary.Name, nil
		}
		secondary, err := i.entry(res.Secondary.Index())
		if err != nil {
			return "", err
		}
		return primary.Name + " " + arrow + " " + secondary.Name, nil

	case StyleDetailed, "":
		return i.renderDetailed(res)
	}
	return "", fmt.Errorf("unknown display style %q: %w", style, oracle.ErrInvalidInput)
}

func (i *Interpreter) renderDetailed(res oracle.CastingResult) (string, error) {
	primary, err := i.entry(res.Primary.Index())
	if err != nil {
		return "", err
	}
	changed := res.Changed()

	rows := make([]string, 0, 6)
	for pos := 6; pos >= 1; pos-- {
		row := stroke(res.Primary[pos-1])
		if changed {
			row += "  " + stroke(res.Secondary[pos-1])
			if res.Moving.Has(pos) {
				row += " *"
			}
		}
		rows = append(rows, row)
	}

	if !changed {
		rows[0] += "  " + primary.Name
		return strings.Join(rows, "\n"), nil
	}
	secondary, err := i.entry(res.Secondary.Index())
	if err != nil {
		return "", err
	}
	rows[0] = padMoving(rows[0], res.Moving.Has(6)) + "  " + primary.Name + "（本卦）"
	rows[5] = padMoving(rows[5], res.Moving.Has(1)) + "  " + secondary.Name + "（变卦）"
	return strings.Join(rows, "\n"), nil
}

// padMoving keeps name labels aligned whether or not the row carries a
// moving marker.
func padMoving(row string, moving bool) string {
	if moving {
		return row
	}
	return row + "  "
}
