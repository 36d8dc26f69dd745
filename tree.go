package treeviewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/LukasParke/treeviewer/document"
	"github.com/LukasParke/treeviewer/inspector"
	"github.com/LukasParke/treeviewer/projection"
	"github.com/LukasParke/treeviewer/protocol"
	"github.com/LukasParke/treeviewer/treesitter"
)

// viewer renders projection nodes of one tree for the client and
// registers their handles.
type viewer struct {
	handles   *handleTable
	projector projection.Projector
	uri       protocol.DocumentURI
	lines     *document.LineIndex
}

func (s *Server) newViewer(uri protocol.DocumentURI, tree *treesitter.Tree, showPositions bool) *viewer {
	return &viewer{
		handles:   s.handles,
		projector: projection.Projector{ShowPositions: showPositions},
		uri:       uri,
		lines:     document.NewLineIndex(string(tree.Source())),
	}
}

func (v *viewer) view(n projection.Node) protocol.NodeView {
	syntax := n.Syntax()
	kind := protocol.NodeInternal
	if _, ok := n.(*projection.Terminal); ok {
		kind = protocol.NodeTerminal
	}
	return protocol.NodeView{
		ID: v.handles.put(nodeHandle{
			node:          n,
			uri:           v.uri,
			showPositions: v.projector.ShowPositions,
		}),
		Kind:        kind,
		Label:       v.projector.Label(n),
		Tooltip:     v.projector.Tooltip(n),
		Type:        syntax.Type(),
		Range:       v.rangeOf(syntax),
		Collapsible: projection.Expandable(n),
	}
}

// rangeOf converts the node's byte span to a UTF-16 range over the source
// the tree was parsed from, which may be older than the document.
func (v *viewer) rangeOf(n treesitter.Node) protocol.Range {
	return v.lines.Range(int(n.StartIndex()), int(n.EndIndex()))
}

func (s *Server) resolveShowPositions(param *bool) bool {
	if param != nil {
		return *param
	}
	s.mu.RLock()
	session := s.showPositions
	s.mu.RUnlock()
	if session != nil {
		return *session
	}
	return s.Settings().ShowPositions
}

func (s *Server) activeTree(ctx context.Context, force bool) (*document.Document, *treesitter.Tree, error) {
	doc, ok := s.docs.ActiveDocument()
	if !ok {
		return nil, nil, treesitter.ErrNoActiveDocument
	}
	tree, err := s.manager.TreeFor(ctx, doc, force)
	if err != nil {
		return nil, nil, err
	}
	return doc, tree, nil
}

func (s *Server) treeResult(ctx context.Context, p protocol.TreeParams) (*protocol.TreeResult, error) {
	doc, tree, err := s.activeTree(ctx, p.ForceRebuild)
	if err != nil {
		return nil, err
	}
	v := s.newViewer(doc.URI(), tree, s.resolveShowPositions(p.ShowPositions))
	return &protocol.TreeResult{
		URI:        doc.URI(),
		LanguageID: tree.LanguageID(),
		Generation: tree.Generation(),
		Root:       v.view(v.projector.Root(tree)),
	}, nil
}

func (s *Server) handleTree(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.TreeParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	return s.treeResult(ctx, p)
}

func (s *Server) handleReloadTree(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.TreeParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	p.ForceRebuild = true
	result, err := s.treeResult(ctx, p)
	if err != nil {
		return nil, err
	}
	if client := s.Client(); client != nil {
		err := client.TreeChanged(ctx, &protocol.TreeChangedParams{URI: result.URI, Generation: result.Generation})
		if err != nil {
			s.logger.Debug("sending tree change", "error", err)
		}
	}
	return result, nil
}

func (s *Server) handleChildren(_ context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.ChildrenParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	h, err := s.handles.get(p.ID)
	if err != nil {
		return nil, err
	}
	tree := h.node.Syntax().Tree()
	v := s.newViewer(h.uri, tree, h.showPositions)
	children := v.projector.Children(h.node)
	views := make([]protocol.NodeView, 0, len(children))
	for _, c := range children {
		views = append(views, v.view(c))
	}
	return views, nil
}

func (s *Server) handleQuery(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.QueryParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Pattern) == "" {
		return nil, invalidParams("pattern is required")
	}

	doc, tree, err := s.activeTree(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", treesitter.ErrNoActiveTree, err)
	}
	matches, err := s.manager.QueryTree(tree, p.Pattern)
	if err != nil {
		return nil, err
	}

	result := &protocol.QueryResult{Matches: make([]protocol.MatchView, 0, len(matches))}
	v := s.newViewer(doc.URI(), tree, s.resolveShowPositions(nil))
	for _, m := range matches {
		result.Matches = append(result.Matches, protocol.MatchView{
			Capture: m.CaptureName,
			Node:    v.view(projection.Of(m.Node)),
			Text:    m.Node.Text(),
		})
	}

	if p.Step && len(matches) > 0 {
		client := s.Client()
		if client == nil {
			return nil, errors.New("stepping through matches needs a connected client")
		}
		result.Visited, err = inspector.StepThroughMatches(ctx, matches, client.Revealer(doc.URI()), client)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Server) handleRegisterGrammar(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.RegisterGrammarParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.LanguageID) == "" || strings.TrimSpace(p.Artifact) == "" {
		return nil, invalidParams("languageId and artifact are required")
	}
	d, err := s.inspector.RegisterGrammar(ctx, strings.TrimSpace(p.LanguageID), strings.TrimSpace(p.Artifact))
	if err != nil {
		return nil, err
	}
	return &protocol.GrammarInfo{LanguageID: d.LanguageID, Artifact: d.Artifact, Overridden: true}, nil
}

func (s *Server) handleCopyNode(_ context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.CopyNodeParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	h, err := s.handles.get(p.ID)
	if err != nil {
		return nil, err
	}
	format := inspector.CopyFormat(p.Format)
	switch format {
	case "":
		format = inspector.CopyType
	case inspector.CopyType, inspector.CopySexp:
	default:
		return nil, invalidParams(fmt.Sprintf("unknown copy format %q", p.Format))
	}
	text, err := s.inspector.CopyNode(h.node.Syntax(), format)
	if err != nil {
		return nil, err
	}
	return &protocol.CopyNodeResult{Text: text}, nil
}

func (s *Server) handleGrammars(context.Context, *jsonrpc2.Request) (interface{}, error) {
	entries := s.manager.Registry().Entries()
	result := &protocol.GrammarsResult{Grammars: make([]protocol.GrammarInfo, 0, len(entries))}
	for _, e := range entries {
		result.Grammars = append(result.Grammars, protocol.GrammarInfo{
			LanguageID: e.LanguageID,
			Artifact:   e.Artifact,
			Overridden: e.Overridden,
		})
	}
	return result, nil
}

func (s *Server) handleStats(context.Context, *jsonrpc2.Request) (interface{}, error) {
	snap := s.metrics.Snapshot()
	result := &protocol.StatsResult{
		Methods: make([]protocol.MethodStat, 0, len(snap)),
		Trees:   s.manager.Cache().Len(),
		Parsers: s.manager.Pool().Bound(),
	}
	for _, m := range snap {
		result.Methods = append(result.Methods, protocol.MethodStat{
			Method:    m.Method,
			Calls:     m.Count,
			Errors:    m.Errors,
			AvgMillis: millis(m.Average()),
			MaxMillis: millis(m.MaxTime),
		})
	}
	return result, nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
