package textclean_test

import (
	"testing"

	"github.com/Lllllllleong/figureflow/internal/textclean"

	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"wave dash", "〜", "至"},
		{"range", "3〜5 mm", "3至5 mm"},
		{"whitespace only", " a \t ", "a"},
		{"empty", "", ""},
		{"parenthesized reference", "普通文本(图4-1)说明", "普通文本说明"},
		{"full-width parenthesis", "如（图 2－3）所示", "如所示"},
		{"bare reference", "Hello 图1 World", "Hello World"},
		{"lenticular brackets", "【图3】结构示意", "结构示意"},
		{"dash chain", "见图1-2-3说明", "见说明"},
		{"full-width digits", "见图１说明", "见说明"},
		{"full-width bracketed chain", "如（图３－１）所示", "如所示"},
		{"bare reference with padding", "见 图 3 说明", "见 说明"},
		{"figure note", "见(图中所示结构)如下", "见如下"},
		{"no digit keeps text", "图表", "图表"},
		{"bullets", "■ 要点 ● 说明 ▶ 结束", "要点 说明 结束"},
		{"greater-than sign", "a > b", "a b"},
		{"control characters", "a\x01b\x7fc", "abc"},
		{"line feeds are control characters", "第一行\n第二行", "第一行第二行"},
		{"unicode line separator", "first\u2028second", "first second"},
		{"trailing full-width space", "行\u3000\u3000\u2028下一行", "行 下一行"},
		{"collapse runs", "a    b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, textclean.Clean(tt.in))
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{
		"普通文本(图4-1)说明",
		"Hello 图1 World",
		" ■ 标题\n正文（图2）继续 ",
		"3〜5 mm  ★重要",
		"见(图中所示结构)如下 【图12】",
		"plain ascii text",
		"",
	}

	for _, in := range inputs {
		once := textclean.Clean(in)
		require.Equal(t, once, textclean.Clean(once), "input %q", in)
	}
}

func TestCleanHandlesInvalidUTF8(t *testing.T) {
	require.NotPanics(t, func() {
		textclean.Clean("abc\xff\xfe图1")
	})
}
