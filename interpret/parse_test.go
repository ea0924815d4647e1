package interpret

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	oracle "github.com/oraclelang/oracle"
)

func TestParseSections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Sections
	}{
		{
			name: "inline colons",
			content: `1. 整体意义解读：乾卦刚健，事有可为。
2. 吉凶判断：吉
3. 具体建议：把握时机，积极进取。`,
			want: Sections{Meaning: "乾卦刚健，事有可为。", Fortune: oracle.FortuneGood, Advice: "把握时机，积极进取。"},
		},
		{
			name: "markdown headings on their own lines",
			content: `**1. 整体意义解读（200字以内）**
乾卦象征天。
此时宜进。

**2. 吉凶判断**
凶

**3. 针对问题的具体建议**
稳守待时。`,
			want: Sections{Meaning: "乾卦象征天。\n此时宜进。", Fortune: oracle.FortuneBad, Advice: "稳守待时。"},
		},
		{
			name: "chinese numerals and ascii colon",
			content: `一、解读: 水火既济，事已成。
二、吉凶: 平
三、建议: 思患预防。`,
			want: Sections{Meaning: "水火既济，事已成。", Fortune: oracle.FortuneNeutral, Advice: "思患预防。"},
		},
		{
			name: "numbered without labels",
			content: `1. 万事开头难。
2. 吉
3. 多听取他人意见。`,
			want: Sections{Meaning: "万事开头难。", Fortune: oracle.FortuneGood, Advice: "多听取他人意见。"},
		},
		{
			name: "mixed verdict counts as bad",
			content: `1. 整体意义：先难后易。
2. 吉凶：吉中藏凶`,
			want: Sections{Meaning: "先难后易。", Fortune: oracle.FortuneBad},
		},
		{
			name: "fourth section ignored",
			content: `1. 整体意义：顺势而为。
3. 建议：少说多做。
4. 补充：仅供参考。`,
			want: Sections{Meaning: "顺势而为。", Advice: "少说多做。"},
		},
		{
			name: "preamble before first section",
			content: `好的，以下是解读：
整体意义：困而不失其所。
吉凶：平
建议：守正待时。`,
			want: Sections{Meaning: "困而不失其所。", Fortune: oracle.FortuneNeutral, Advice: "守正待时。"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSections(tt.content)
			if err != nil {
				t.Fatalf("ParseSections: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("sections (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSectionsMalformed(t *testing.T) {
	for _, content := range []string{
		"",
		"今天天气不错。",
		"2. 吉凶：吉\n3. 建议：出门。",
	} {
		if _, err := ParseSections(content); err == nil {
			t.Errorf("ParseSections(%q): expected error", content)
		}
	}
}
