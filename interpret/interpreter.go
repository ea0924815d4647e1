// Package interpret turns casting results into readings: judgments, moving
// line statements, a verdict and advice, optionally elaborated by an LLM.
package interpret

import (
	"fmt"
	"strings"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/glyph"
)

// Table is the hexagram data an Interpreter reads. *glyph.Table implements it.
type Table interface {
	Entry(index int) (glyph.Entry, error)
	LineStatement(index, position int) (string, error)
}

// Interpreter assembles readings from a Table. It holds no mutable state.
type Interpreter struct {
	table Table
	style Style
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithStyle sets the figure style drawn at the top of each reading.
// Defaults to StyleDetailed.
func WithStyle(s Style) Option {
	return func(i *Interpreter) { i.style = s }
}

// New creates an Interpreter over table.
func New(table Table, opts ...Option) *Interpreter {
	i := &Interpreter{table: table, style: StyleDetailed}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var _ oracle.Interpreter = (*Interpreter)(nil)

// Style returns the configured figure style.
func (i *Interpreter) Style() Style { return i.style }

// Interpret builds the reading of res. Missing table data yields an error
// wrapping oracle.ErrDataIntegrity.
func (i *Interpreter) Interpret(res oracle.CastingResult) (oracle.Reading, error) {
	primary, err := i.entry(res.Primary.Index())
	if err != nil {
		return oracle.Reading{}, err
	}
	r := oracle.Reading{
		Result:        res,
		PrimaryName:   primary.Name,
		SecondaryName: primary.Name,
	}

	var secondary *glyph.Entry
	if res.Changed() {
		e, err := i.entry(res.Secondary.Index())
		if err != nil {
			return oracle.Reading{}, err
		}
		secondary = &e
		r.SecondaryName = e.Name

		for _, p := range res.Moving.Positions() {
			s, err := i.table.LineStatement(primary.Index, p)
			if err != nil {
				return oracle.Reading{}, err
			}
			r.MovingLines = append(r.MovingLines, s)
		}
		// All six lines of 乾 or 坤 moving reads 用九 / 用六 as well.
		if res.Moving.Len() == 6 && primary.Extra != "" {
			r.MovingLines = append(r.MovingLines, primary.Extra)
		}
	}

	r.Meaning = overallMeaning(primary, secondary)
	r.Fortune = determineFortune(primary, secondary)
	r.Advice = advise(primary, secondary)

	figure, err := i.Render(res, i.style)
	if err != nil {
		return oracle.Reading{}, err
	}
	r.Text = compose(figure, res, primary, secondary, r)
	return r, nil
}

func (i *Interpreter) entry(index int) (glyph.Entry, error) {
	e, err := i.table.Entry(index)
	if err != nil {
		return glyph.Entry{}, err
	}
	if e.Name == "" || e.Judgment == "" {
		return glyph.Entry{}, fmt.Errorf("hexagram %d has no data: %w", index, oracle.ErrDataIntegrity)
	}
	return e, nil
}

func compose(figure string, res oracle.CastingResult, primary glyph.Entry, secondary *glyph.Entry, r oracle.Reading) string {
	var sb strings.Builder
	sb.WriteString(figure)

	p := res.Primary
	fmt.Fprintf(&sb, "\n\n📌 本卦: %s %s（第%d卦，上%s下%s）", p.Symbol(), primary.Name, primary.Index, p.Upper().Name(), p.Lower().Name())
	fmt.Fprintf(&sb, "\n✨ 卦辞: %s", primary.Judgment)

	if len(r.MovingLines) > 0 {
		sb.WriteString("\n\n🔄 动爻:")
		for _, l := range r.MovingLines {
			sb.WriteString("\n  " + l)
		}
	}

	if secondary != nil {
		s := res.Secondary
		fmt.Fprintf(&sb, "\n\n➡️ 变卦: %s %s（第%d卦，上%s下%s）", s.Symbol(), secondary.Name, secondary.Index, s.Upper().Name(), s.Lower().Name())
		fmt.Fprintf(&sb, "\n  %s之%s，%s", primary.Short, secondary.Short, secondary.Judgment)
	}

	fmt.Fprintf(&sb, "\n\n📜 解释: %s", r.Meaning)
	fmt.Fprintf(&sb, "\n🎯 吉凶: %s", r.Fortune)
	fmt.Fprintf(&sb, "\n💡 建议: %s", r.Advice)
	return sb.String()
}

func overallMeaning(primary glyph.Entry, secondary *glyph.Entry) string {
	if secondary == nil {
		return fmt.Sprintf("%s：%s卦辞：%s", primary.Name, primary.Description, primary.Judgment)
	}
	return fmt.Sprintf("%s变%s：从%s变化为%s。这表示情况正在发生转变。",
		primary.Name, secondary.Name,
		strings.TrimSuffix(primary.Description, "。"),
		strings.TrimSuffix(secondary.Description, "。"))
}

// determineFortune reads the verdict off the judgments: 吉 in the primary,
// then 吉 in the secondary, then 凶 in the primary; otherwise 平.
func determineFortune(primary glyph.Entry, secondary *glyph.Entry) oracle.Fortune {
	switch {
	case strings.Contains(primary.Judgment, "吉"):
		return oracle.FortuneGood
	case secondary != nil && strings.Contains(secondary.Judgment, "吉"):
		return oracle.FortuneGood
	case strings.Contains(primary.Judgment, "凶"):
		return oracle.FortuneBad
	default:
		return oracle.FortuneNeutral
	}
}

func advise(primary glyph.Entry, secondary *glyph.Entry) string {
	if secondary == nil {
		return fmt.Sprintf("请参考%s卦的卦辞进行决策。", primary.Name)
	}
	return fmt.Sprintf("正处于从%s到%s的变化过程中，建议关注变化的动向，顺势而为。", primary.Name, secondary.Name)
}
