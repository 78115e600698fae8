package duck

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractFixCommand pulls the fixed command out of the model response: the
// first fenced code block in a shell language (or with no language tag). The
// prompt instructs the model to emit exactly one such block.
func ExtractFixCommand(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var fix string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || fix != "" {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if !shellFence(block, source) {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(source))
		}
		fix = strings.TrimSpace(b.String())
		return ast.WalkStop, nil
	})
	return fix
}

func shellFence(block *ast.FencedCodeBlock, source []byte) bool {
	lang := strings.ToLower(strings.TrimSpace(string(block.Language(source))))
	switch lang {
	case "", "bash", "sh", "shell", "zsh", "fish", "console":
		return true
	default:
		return false
	}
}
