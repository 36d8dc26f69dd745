package inspector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/LukasParke/treeviewer/projection"
	"github.com/LukasParke/treeviewer/treesitter"
)

// LinePrompter asks questions on a line-oriented terminal.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter reads answers from in and writes prompts to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) readLine(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line == "" {
			return "", false, nil
		}
		if !errors.Is(err, io.EOF) {
			return "", false, err
		}
	}
	return strings.TrimSpace(line), true, nil
}

// Input implements Prompter.
func (p *LinePrompter) Input(ctx context.Context, prompt, placeholder string) (string, bool, error) {
	if placeholder != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", prompt, placeholder)
	} else {
		fmt.Fprintf(p.out, "%s: ", prompt)
	}
	line, ok, err := p.readLine(ctx)
	if err != nil || !ok || line == "" {
		return "", false, err
	}
	return line, true, nil
}

// Confirm implements Confirmer. Anything but y or yes is a no.
func (p *LinePrompter) Confirm(ctx context.Context, message string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N] ", message)
	line, ok, err := p.readLine(ctx)
	if err != nil || !ok {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// PickFile implements Prompter by reading a path; the file must exist.
func (p *LinePrompter) PickFile(ctx context.Context, title string) (string, bool, error) {
	path, ok, err := p.Input(ctx, title, "path")
	if err != nil || !ok {
		return "", false, err
	}
	if _, err := os.Stat(path); err != nil {
		return "", false, fmt.Errorf("grammar file: %w", err)
	}
	return path, true, nil
}

// LineRevealer prints the source line of a node with its span underlined.
type LineRevealer struct {
	out io.Writer
}

// NewLineRevealer writes revealed nodes to out.
func NewLineRevealer(out io.Writer) *LineRevealer {
	return &LineRevealer{out: out}
}

// Reveal implements Revealer.
func (r *LineRevealer) Reveal(ctx context.Context, node treesitter.Node) error {
	src := node.Tree().Source()
	start, end := node.StartIndex(), node.EndIndex()

	lineStart := strings.LastIndexByte(string(src[:start]), '\n') + 1
	lineEnd := len(src)
	if nl := strings.IndexByte(string(src[start:]), '\n'); nl >= 0 {
		lineEnd = int(start) + nl
	}
	line := string(src[lineStart:lineEnd])

	width := int(end) - int(start)
	if int(end) > lineEnd {
		width = lineEnd - int(start)
	}
	if width < 1 {
		width = 1
	}
	pad := strings.Map(func(r rune) rune {
		if r == '\t' {
			return '\t'
		}
		return ' '
	}, string(src[lineStart:start]))

	_, err := fmt.Fprintf(r.out, "%s %s\n  %s\n  %s%s\n",
		node.Type(), projection.Span(node), line, pad, strings.Repeat("^", width))
	return err
}
