package interpret

import (
	"strings"

	oracle "github.com/oraclelang/oracle"
)

// BuildPrompt renders the single user message sent to the LLM. The reply is
// expected in three numbered sections that ParseSections understands.
func BuildPrompt(question string, r oracle.Reading) string {
	lines := []string{
		"请基于以下易经卦象信息，对问题「" + question + "」进行解读:",
		"本卦: " + r.PrimaryName,
	}
	if r.Result.Changed() {
		lines = append(lines, "变卦: "+r.SecondaryName)
	}
	if len(r.MovingLines) > 0 {
		lines = append(lines, "动爻:")
		for _, l := range r.MovingLines {
			lines = append(lines, "- "+l)
		}
	}
	lines = append(lines,
		"",
		"请按以下格式回答:",
		"1. 整体意义解读（200字以内）",
		"2. 吉凶判断（用一个词：吉/凶/平）",
		"3. 针对问题的具体建议（100字以内）",
	)
	return strings.Join(lines, "\n")
}
