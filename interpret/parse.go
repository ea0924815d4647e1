package interpret

import (
	"errors"
	"strings"
	"unicode/utf8"

	oracle "github.com/oraclelang/oracle"
)

// Sections is an LLM reply split into its three parts.
type Sections struct {
	Meaning string
	// Fortune is empty when the reply had no verdict section.
	Fortune oracle.Fortune
	Advice  string
}

var errNoMeaning = errors.New("reply has no meaning section")

type section int

const (
	secNone section = iota
	secMeaning
	secFortune
	secAdvice
)

var numbered = []struct {
	prefix string
	sec    section
}{
	{"1.", secMeaning}, {"1、", secMeaning}, {"1)", secMeaning}, {"1）", secMeaning}, {"一、", secMeaning},
	{"2.", secFortune}, {"2、", secFortune}, {"2)", secFortune}, {"2）", secFortune}, {"二、", secFortune},
	{"3.", secAdvice}, {"3、", secAdvice}, {"3)", secAdvice}, {"3）", secAdvice}, {"三、", secAdvice},
	{"4.", secNone}, {"4、", secNone}, {"四、", secNone},
}

// bareHeadings are lines that only announce a section.
var bareHeadings = map[string]section{
	"整体意义": secMeaning, "整体意义解读": secMeaning, "解读": secMeaning, "意义": secMeaning, "卦象解读": secMeaning,
	"吉凶": secFortune, "吉凶判断": secFortune,
	"建议": secAdvice, "具体建议": secAdvice, "行动建议": secAdvice, "针对问题的具体建议": secAdvice,
}

// ParseSections splits a reply written as "1. … 2. … 3. …" (or with
// 整体意义 / 吉凶 / 建议 headings, with or without an inline colon) into
// meaning, fortune and advice. A reply without a meaning section is an error.
func ParseSections(content string) (Sections, error) {
	var (
		bufs [4][]string
		cur  = secNone
	)
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if sec, rest, ok := heading(line); ok {
			cur = sec
			if rest != "" && cur != secNone {
				bufs[cur] = append(bufs[cur], rest)
			}
			continue
		}
		if cur != secNone {
			bufs[cur] = append(bufs[cur], strings.Trim(line, "* "))
		}
	}

	s := Sections{
		Meaning: strings.TrimSpace(strings.Join(bufs[secMeaning], "\n")),
		Advice:  strings.TrimSpace(strings.Join(bufs[secAdvice], "\n")),
	}
	if len(bufs[secFortune]) > 0 {
		s.Fortune = fortuneOf(strings.Join(bufs[secFortune], "\n"))
	}
	if s.Meaning == "" {
		return s, errNoMeaning
	}
	return s, nil
}

// heading reports whether line opens a section, returning any content that
// follows the heading on the same line.
func heading(line string) (section, string, bool) {
	s := strings.TrimSpace(strings.TrimLeft(line, "#* "))

	sec, isNumbered := secNone, false
	for _, n := range numbered {
		if strings.HasPrefix(s, n.prefix) {
			sec, isNumbered = n.sec, true
			s = strings.TrimSpace(strings.TrimPrefix(s, n.prefix))
			break
		}
	}

	label, rest, hasColon := cutColon(s)
	if hasColon {
		if ls := labelSection(label); ls != secNone {
			if !isNumbered {
				sec = ls
			}
			return sec, strings.Trim(rest, "* "), true
		}
	} else if bs, ok := bareHeadings[cleanLabel(s)]; ok {
		if !isNumbered {
			sec = bs
		}
		return sec, "", true
	}

	if isNumbered {
		return sec, strings.Trim(s, "* "), true
	}
	return secNone, "", false
}

func cutColon(s string) (before, after string, found bool) {
	i := strings.IndexAny(s, ":：")
	if i < 0 {
		return s, "", false
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return s[:i], strings.TrimSpace(s[i+size:]), true
}

// cleanLabel strips markdown emphasis and a parenthesised note such as
// （200字以内）.
func cleanLabel(s string) string {
	s = strings.Trim(s, "*# ")
	if i := strings.IndexAny(s, "（("); i > 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.Trim(s, "*"))
}

func labelSection(label string) section {
	l := cleanLabel(label)
	if utf8.RuneCountInString(l) > 12 {
		return secNone
	}
	switch {
	case strings.Contains(l, "吉凶"):
		return secFortune
	case strings.Contains(l, "建议"):
		return secAdvice
	case strings.Contains(l, "意义"), strings.Contains(l, "解读"):
		return secMeaning
	}
	return secNone
}

func fortuneOf(text string) oracle.Fortune {
	good, bad := strings.Contains(text, "吉"), strings.Contains(text, "凶")
	switch {
	case good && !bad:
		return oracle.FortuneGood
	case bad:
		return oracle.FortuneBad
	default:
		return oracle.FortuneNeutral
	}
}
