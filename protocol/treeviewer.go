package protocol

// TreeViewerCapabilities is advertised under the experimental capability.
type TreeViewerCapabilities struct {
	Methods   []string `json:"methods"`
	Languages []string `json:"languages"`
}

// ActiveEditorParams reports the document that now has focus. A nil
// document means no editor is active.
type ActiveEditorParams struct {
	TextDocument *TextDocumentIdentifier `json:"textDocument,omitempty"`
}

// TreeParams requests the root of the active document's tree.
type TreeParams struct {
	ForceRebuild  bool  `json:"forceRebuild,omitempty"`
	ShowPositions *bool `json:"showPositions,omitempty"`
}

// NodeKind tells internal nodes from terminal ones.
type NodeKind string

const (
	NodeInternal NodeKind = "internal"
	NodeTerminal NodeKind = "terminal"
)

// NodeView is a projected tree node. ID is a handle valid for the tree
// generation that produced it; expandable nodes are fetched with
// treeviewer/children.
type NodeView struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"kind"`
	Label       string   `json:"label"`
	Tooltip     string   `json:"tooltip"`
	Type        string   `json:"type"`
	Range       Range    `json:"range"`
	Collapsible bool     `json:"collapsible"`
}

// TreeResult is the answer to treeviewer/tree and treeviewer/reloadTree.
type TreeResult struct {
	URI        DocumentURI `json:"uri"`
	LanguageID string      `json:"languageId"`
	Generation uint64      `json:"generation"`
	Root       NodeView    `json:"root"`
}

type ChildrenParams struct {
	ID string `json:"id"`
}

// QueryParams runs a structural query against the active tree. With Step
// set, the server walks the matches with the user before answering.
type QueryParams struct {
	Pattern string `json:"pattern"`
	Step    bool   `json:"step,omitempty"`
}

type MatchView struct {
	Capture string   `json:"capture"`
	Node    NodeView `json:"node"`
	Text    string   `json:"text"`
}

type QueryResult struct {
	Matches []MatchView `json:"matches"`
	// Visited is the number of matches shown during a step-through.
	Visited int `json:"visited,omitempty"`
}

type RegisterGrammarParams struct {
	LanguageID string `json:"languageId"`
	Artifact   string `json:"artifact"`
}

// CopyFormat selects what treeviewer/copyNode copies.
type CopyFormat string

const (
	CopyType CopyFormat = "type"
	CopySexp CopyFormat = "sexp"
)

type CopyNodeParams struct {
	ID     string     `json:"id"`
	Format CopyFormat `json:"format"`
}

type CopyNodeResult struct {
	Text string `json:"text"`
}

type GrammarInfo struct {
	LanguageID string `json:"languageId"`
	Artifact   string `json:"artifact"`
	Overridden bool   `json:"overridden,omitempty"`
}

// GrammarsResult lists every resolvable grammar sorted by language ID.
type GrammarsResult struct {
	Grammars []GrammarInfo `json:"grammars"`
}

// TreeChangedParams is sent after the active tree is rebuilt.
type TreeChangedParams struct {
	URI        DocumentURI `json:"uri"`
	Generation uint64      `json:"generation"`
}

// TreeErrorParams is sent when refreshing the active tree fails.
type TreeErrorParams struct {
	URI     DocumentURI `json:"uri,omitempty"`
	Message string      `json:"message"`
}

// MethodStat is one row of treeviewer/stats.
type MethodStat struct {
	Method    string  `json:"method"`
	Calls     int64   `json:"calls"`
	Errors    int64   `json:"errors"`
	AvgMillis float64 `json:"avgMillis"`
	MaxMillis float64 `json:"maxMillis"`
}

// StatsResult reports per-method telemetry, the number of cached trees and
// the languages that currently hold a parser.
type StatsResult struct {
	Methods []MethodStat `json:"methods"`
	Trees   int          `json:"trees"`
	Parsers []string     `json:"parsers"`
}
