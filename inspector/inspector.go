// Package inspector implements the interactive commands layered over the
// tree manager: stepping through query matches, copying node details and
// registering custom grammars. Editor-specific behavior is reached through
// the Prompter, Revealer and Clipboard interfaces.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LukasParke/treeviewer/grammar"
	"github.com/LukasParke/treeviewer/treesitter"
)

// ErrCancelled is returned when the user dismisses a prompt.
var ErrCancelled = errors.New("cancelled")

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Prompter is the modal user interaction surface. Input and PickFile report
// ok=false when the user dismisses the prompt.
type Prompter interface {
	Confirmer
	Input(ctx context.Context, prompt, placeholder string) (value string, ok bool, err error)
	PickFile(ctx context.Context, title string) (path string, ok bool, err error)
}

// Revealer selects a node's span in the editor and scrolls it into view.
type Revealer interface {
	Reveal(ctx context.Context, node treesitter.Node) error
}

// Clipboard is a write-only text sink.
type Clipboard interface {
	WriteText(text string) error
}

// Inspector runs the interactive commands against a manager.
type Inspector struct {
	manager   *treesitter.Manager
	prompter  Prompter
	revealer  Revealer
	clipboard Clipboard
	logger    *slog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithPrompter sets the prompt surface.
func WithPrompter(p Prompter) Option { return func(i *Inspector) { i.prompter = p } }

// WithRevealer sets the selection surface.
func WithRevealer(r Revealer) Option { return func(i *Inspector) { i.revealer = r } }

// WithClipboard sets the clipboard sink.
func WithClipboard(c Clipboard) Option { return func(i *Inspector) { i.clipboard = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(i *Inspector) { i.logger = l } }

// New creates an Inspector over m.
func New(m *treesitter.Manager, opts ...Option) *Inspector {
	i := &Inspector{manager: m, logger: slog.Default()}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Manager returns the tree manager.
func (i *Inspector) Manager() *treesitter.Manager { return i.manager }

// ReloadTree rebuilds the active document's tree.
func (i *Inspector) ReloadTree(ctx context.Context) (*treesitter.Tree, error) {
	return i.manager.GetCurrentTree(ctx, true)
}

// Query runs pattern against the active tree and, when step is set, walks
// the matches with the user. An empty pattern is asked for first. It
// returns the matches and how many were shown.
func (i *Inspector) Query(ctx context.Context, pattern string, step bool) ([]treesitter.Match, int, error) {
	if strings.TrimSpace(pattern) == "" {
		if i.prompter == nil {
			return nil, 0, errors.New("no query pattern given")
		}
		p, ok, err := i.prompter.Input(ctx, "Query pattern", "(identifier) @name")
		if err != nil {
			return nil, 0, err
		}
		if !ok || strings.TrimSpace(p) == "" {
			return nil, 0, ErrCancelled
		}
		pattern = p
	}

	matches, err := i.manager.Query(ctx, pattern)
	if err != nil {
		return nil, 0, err
	}
	if !step {
		return matches, 0, nil
	}
	if i.revealer == nil || i.prompter == nil {
		return matches, 0, errors.New("stepping through matches needs an editor")
	}
	visited, err := StepThroughMatches(ctx, matches, i.revealer, i.prompter)
	return matches, visited, err
}

// StepThroughMatches reveals matches one at a time in order, asking before
// each next one. It stops at the first "no" or when the matches run out and
// returns how many were revealed. No match is revealed twice.
func StepThroughMatches(ctx context.Context, matches []treesitter.Match, r Revealer, c Confirmer) (int, error) {
	for idx, m := range matches {
		if err := ctx.Err(); err != nil {
			return idx, err
		}
		if err := r.Reveal(ctx, m.Node); err != nil {
			return idx, fmt.Errorf("revealing match %d: %w", idx+1, err)
		}
		if idx == len(matches)-1 {
			return idx + 1, nil
		}
		more, err := c.Confirm(ctx, fmt.Sprintf("Match %d of %d (@%s). Show next?", idx+1, len(matches), m.CaptureName))
		if err != nil {
			return idx + 1, err
		}
		if !more {
			return idx + 1, nil
		}
	}
	return len(matches), nil
}

// CopyFormat selects what CopyNode copies.
type CopyFormat string

const (
	CopyType CopyFormat = "type"
	CopySexp CopyFormat = "sexp"
)

// NodeText renders node in the given format.
func NodeText(node treesitter.Node, format CopyFormat) (string, error) {
	switch format {
	case CopyType:
		return node.Type(), nil
	case CopySexp:
		return node.Sexp(), nil
	default:
		return "", fmt.Errorf("unknown copy format %q", format)
	}
}

// CopyNode writes the node's type or s-expression to the clipboard and
// returns the text. Without a clipboard the text is only returned.
func (i *Inspector) CopyNode(node treesitter.Node, format CopyFormat) (string, error) {
	text, err := NodeText(node, format)
	if err != nil {
		return "", err
	}
	if i.clipboard != nil {
		if err := i.clipboard.WriteText(text); err != nil {
			return text, fmt.Errorf("writing clipboard: %w", err)
		}
	}
	return text, nil
}

// RegisterGrammar validates artifact by loading it and then routes
// languageID to it. Empty arguments are asked for. A grammar that fails to
// load is not registered.
func (i *Inspector) RegisterGrammar(ctx context.Context, languageID, artifact string) (grammar.Descriptor, error) {
	if languageID == "" || artifact == "" {
		if i.prompter == nil {
			return grammar.Descriptor{}, errors.New("language and artifact are required")
		}
	}
	if languageID == "" {
		id, ok, err := i.prompter.Input(ctx, "Language identifier", "e.g. javascript")
		if err != nil {
			return grammar.Descriptor{}, err
		}
		if !ok || strings.TrimSpace(id) == "" {
			return grammar.Descriptor{}, ErrCancelled
		}
		languageID = strings.TrimSpace(id)
	}
	if artifact == "" {
		path, ok, err := i.prompter.PickFile(ctx, "Grammar for "+languageID)
		if err != nil {
			return grammar.Descriptor{}, err
		}
		if !ok || path == "" {
			return grammar.Descriptor{}, ErrCancelled
		}
		artifact = path
	}

	d := grammar.Descriptor{LanguageID: languageID, Artifact: artifact}
	if _, err := i.manager.Loader().Load(d); err != nil {
		return grammar.Descriptor{}, err
	}
	i.manager.RegisterCustomGrammar(languageID, artifact)
	return d, nil
}
