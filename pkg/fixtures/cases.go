package fixtures

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	mdast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ProgramFence is the fence language holding the YAML program of a case.
const ProgramFence = "pkl-program"

// AssertionKind names an assertion fence.
type AssertionKind string

const (
	// AssertType checks the type of the last expression statement.
	AssertType AssertionKind = "type"
	// AssertLiteral checks the folded value of the last expression statement.
	AssertLiteral AssertionKind = "literal"
	// AssertCompileError expects compilation to fail with an error
	// containing the fence content.
	AssertCompileError AssertionKind = "compile-error"
	AssertWarning      AssertionKind = "warning"
)

type Assertion struct {
	Kind    AssertionKind
	Content string
	Line    int
}

// Case is one test case of a markdown document.
type Case struct {
	Name       string
	Program    string
	Line       int // line of the program fence
	Assertions []Assertion
}

// ExtractCases parses a markdown document and returns its test cases. A case
// starts at a heading "Test: <name>" and holds one pkl-program fence and at
// least one assertion fence. Fences without a language are prose.
func ExtractCases(source []byte) ([]Case, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []Case
	var current *Case
	err := mdast.Walk(doc, func(node mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *mdast.Heading:
			heading := textOf(n, source)
			if !strings.HasPrefix(heading, "Test: ") {
				return mdast.WalkContinue, nil
			}
			if current != nil {
				if err := validate(current); err != nil {
					return mdast.WalkStop, err
				}
				cases = append(cases, *current)
			}
			current = &Case{Name: strings.TrimPrefix(heading, "Test: ")}

		case *mdast.FencedCodeBlock:
			language := string(n.Language(source))
			if language == "" {
				return mdast.WalkContinue, nil
			}
			line := lineOf(n, source)
			if current == nil {
				return mdast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test case", line, language)
			}
			content := strings.TrimRight(fenceContent(n, source), "\n")
			switch {
			case language == ProgramFence:
				if current.Program != "" {
					return mdast.WalkStop, fmt.Errorf("line %d: test %q has several program fences", line, current.Name)
				}
				current.Program = content
				current.Line = line
			case isAssertion(language):
				current.Assertions = append(current.Assertions, Assertion{
					Kind:    AssertionKind(language),
					Content: content,
					Line:    line,
				})
			default:
				return mdast.WalkStop, fmt.Errorf("line %d: unknown fence language %q in test %q", line, language, current.Name)
			}
		}
		return mdast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("extract cases: %w", err)
	}
	if current != nil {
		if err := validate(current); err != nil {
			return nil, fmt.Errorf("extract cases: %w", err)
		}
		cases = append(cases, *current)
	}
	return cases, nil
}

func isAssertion(language string) bool {
	switch AssertionKind(language) {
	case AssertType, AssertLiteral, AssertCompileError, AssertWarning:
		return true
	}
	return false
}

func validate(c *Case) error {
	if c.Program == "" {
		return fmt.Errorf("test %q has no %s fence", c.Name, ProgramFence)
	}
	if len(c.Assertions) == 0 {
		return fmt.Errorf("test %q has no assertion fences", c.Name)
	}
	return nil
}

func textOf(node mdast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = mdast.Walk(node, func(n mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if t, ok := n.(*mdast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return mdast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *mdast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func lineOf(node mdast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	if start > len(source) {
		start = len(source)
	}
	return 1 + bytes.Count(source[:start], []byte("\n"))
}
