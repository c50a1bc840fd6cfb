package fixtures

import (
	"testing"

	"github.com/nalgeon/be"
)

const document = "# Arithmetic\n" +
	"\n" +
	"Prose and unlabelled fences are ignored.\n" +
	"\n" +
	"```\n" +
	"not a case\n" +
	"```\n" +
	"\n" +
	"## Test: mixed widths\n" +
	"\n" +
	"```pkl-program\n" +
	"- {kind: exp, exp: {kind: bin, op: \"+\", left: {kind: int, value: 1, size: 64}, right: 2}}\n" +
	"```\n" +
	"\n" +
	"```type\n" +
	"int<64>\n" +
	"```\n" +
	"\n" +
	"```literal\n" +
	"3\n" +
	"```\n" +
	"\n" +
	"## Test: division by zero\n" +
	"\n" +
	"```pkl-program\n" +
	"- {kind: exp, exp: {kind: bin, op: /, left: 1, right: 0}}\n" +
	"```\n" +
	"\n" +
	"```compile-error\n" +
	"division by zero\n" +
	"```\n"

func TestExtractCases(t *testing.T) {
	cases, err := ExtractCases([]byte(document))
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 2)

	first := cases[0]
	be.Equal(t, first.Name, "mixed widths")
	be.Equal(t, first.Line, 12)
	be.Equal(t, len(first.Assertions), 2)
	be.Equal(t, first.Assertions[0].Kind, AssertType)
	be.Equal(t, first.Assertions[0].Content, "int<64>")
	be.Equal(t, first.Assertions[1].Kind, AssertLiteral)

	second := cases[1]
	be.Equal(t, second.Name, "division by zero")
	be.Equal(t, second.Assertions[0].Kind, AssertCompileError)
	be.Equal(t, second.Assertions[0].Content, "division by zero")
}

func TestExtractCasesRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"fence outside a case",
			"```pkl-program\n- {kind: null}\n```\n",
			"outside of a test case",
		},
		{
			"unknown fence",
			"## Test: t\n\n```pkl-program\n- {kind: null}\n```\n\n```golden\nx\n```\n",
			`unknown fence language "golden"`,
		},
		{
			"two programs",
			"## Test: t\n\n```pkl-program\n- {kind: null}\n```\n\n```pkl-program\n- {kind: null}\n```\n",
			"several program fences",
		},
		{
			"no program",
			"## Test: t\n\n```type\nint<32>\n```\n",
			"has no pkl-program fence",
		},
		{
			"no assertion",
			"## Test: t\n\n```pkl-program\n- {kind: null}\n```\n",
			"has no assertion fences",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractCases([]byte(tc.doc))
			be.Err(t, err, tc.want)
		})
	}
}
