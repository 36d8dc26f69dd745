package treeviewtest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/LukasParke/treeviewer"
	"github.com/LukasParke/treeviewer/protocol"
	"github.com/LukasParke/treeviewer/transport"
)

// Client is an editor stand-in connected to a server over an in-memory
// transport. It answers the server's window/showMessageRequest prompts from
// a script, acknowledges window/showDocument and records every
// notification it receives.
type Client struct {
	t    testing.TB
	conn *jsonrpc2.Conn

	mu            sync.Mutex
	answers       []bool
	prompts       []protocol.ShowMessageRequestParams
	shown         []protocol.ShowDocumentParams
	notifications []notification
}

type notification struct {
	Method string
	Params json.RawMessage
}

// NewClient connects a client to s and initializes the session. The
// connection is closed when the test completes.
func NewClient(t testing.TB, s *treeviewer.Server) *Client {
	t.Helper()
	c := Connect(t, s)
	c.Initialize(nil)
	return c
}

// Connect connects a client to s without initializing.
func Connect(t testing.TB, s *treeviewer.Server) *Client {
	t.Helper()
	clientTransport, serverTransport := transport.MemoryPipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.ServeConn(ctx, serverTransport); err != nil && ctx.Err() == nil {
			t.Logf("server error: %v", err)
		}
	}()

	c := &Client{t: t}
	stream := jsonrpc2.NewBufferedStream(clientTransport, jsonrpc2.VSCodeObjectCodec{})
	c.conn = jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(c.handle))

	t.Cleanup(func() {
		c.conn.Close()
		cancel()
		<-done
	})
	return c
}

func (c *Client) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if req.Notif {
		c.notifications = append(c.notifications, notification{Method: req.Method, Params: params})
		return nil, nil
	}

	switch req.Method {
	case protocol.MethodShowMessageRequest:
		var p protocol.ShowMessageRequestParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		c.prompts = append(c.prompts, p)
		if len(c.answers) == 0 {
			return nil, nil
		}
		next := c.answers[0]
		c.answers = c.answers[1:]
		if next {
			return &protocol.MessageActionItem{Title: treeviewer.ActionNext}, nil
		}
		return &protocol.MessageActionItem{Title: treeviewer.ActionStop}, nil
	case protocol.MethodShowDocument:
		var p protocol.ShowDocumentParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		c.shown = append(c.shown, p)
		return &protocol.ShowDocumentResult{Success: true}, nil
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "client does not handle " + req.Method}
	}
}

// AnswerSteps queues answers for the server's "show next match?" prompts.
// Once the queue is empty, prompts are dismissed.
func (c *Client) AnswerSteps(next ...bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers = append(c.answers, next...)
}

// Prompts returns the message requests the server sent.
func (c *Client) Prompts() []protocol.ShowMessageRequestParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.ShowMessageRequestParams(nil), c.prompts...)
}

// Shown returns the showDocument requests the server sent.
func (c *Client) Shown() []protocol.ShowDocumentParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.ShowDocumentParams(nil), c.shown...)
}

// Initialize sends the initialize request and initialized notification.
func (c *Client) Initialize(opts *protocol.InitializationOptions) *protocol.InitializeResult {
	c.t.Helper()
	var result protocol.InitializeResult
	c.call(protocol.MethodInitialize, &protocol.InitializeParams{InitializationOptions: opts}, &result)
	c.notify(protocol.MethodInitialized, struct{}{})
	return &result
}

// Open sends textDocument/didOpen.
func (c *Client) Open(uri, languageID, text string) {
	c.t.Helper()
	c.notify(protocol.MethodDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(uri),
			LanguageID: languageID,
			Version:    1,
			Text:       text,
		},
	})
}

// Change sends textDocument/didChange with full content replacement.
func (c *Client) Change(uri string, version int32, text string) {
	c.t.Helper()
	c.notify(protocol.MethodDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
}

// Close sends textDocument/didClose.
func (c *Client) Close(uri string) {
	c.t.Helper()
	c.notify(protocol.MethodDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	})
}

// Activate reports uri as the active editor. An empty uri means none.
func (c *Client) Activate(uri string) {
	c.t.Helper()
	var p protocol.ActiveEditorParams
	if uri != "" {
		p.TextDocument = &protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)}
	}
	c.notify(protocol.MethodDidChangeActiveEditor, &p)
}

// OpenActive opens a document and makes it the active editor.
func (c *Client) OpenActive(uri, languageID, text string) {
	c.t.Helper()
	c.Open(uri, languageID, text)
	c.Activate(uri)
}

// Tree sends treeviewer/tree.
func (c *Client) Tree(params protocol.TreeParams) (*protocol.TreeResult, error) {
	var result protocol.TreeResult
	if err := c.Call(protocol.MethodTree, &params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reload sends treeviewer/reloadTree.
func (c *Client) Reload() (*protocol.TreeResult, error) {
	var result protocol.TreeResult
	if err := c.Call(protocol.MethodReloadTree, &protocol.TreeParams{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Children sends treeviewer/children.
func (c *Client) Children(id string) ([]protocol.NodeView, error) {
	var result []protocol.NodeView
	if err := c.Call(protocol.MethodChildren, &protocol.ChildrenParams{ID: id}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Query sends treeviewer/query.
func (c *Client) Query(pattern string, step bool) (*protocol.QueryResult, error) {
	var result protocol.QueryResult
	if err := c.Call(protocol.MethodQuery, &protocol.QueryParams{Pattern: pattern, Step: step}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RegisterGrammar sends treeviewer/registerGrammar.
func (c *Client) RegisterGrammar(languageID, artifact string) (*protocol.GrammarInfo, error) {
	var result protocol.GrammarInfo
	params := &protocol.RegisterGrammarParams{LanguageID: languageID, Artifact: artifact}
	if err := c.Call(protocol.MethodRegisterGrammar, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CopyNode sends treeviewer/copyNode.
func (c *Client) CopyNode(id string, format protocol.CopyFormat) (string, error) {
	var result protocol.CopyNodeResult
	if err := c.Call(protocol.MethodCopyNode, &protocol.CopyNodeParams{ID: id, Format: format}, &result); err != nil {
		return "", err
	}
	return result.Text, nil
}

// Grammars sends treeviewer/grammars.
func (c *Client) Grammars() []protocol.GrammarInfo {
	c.t.Helper()
	var result protocol.GrammarsResult
	c.call(protocol.MethodGrammars, nil, &result)
	return result.Grammars
}

// Stats sends treeviewer/stats.
func (c *Client) Stats() *protocol.StatsResult {
	c.t.Helper()
	var result protocol.StatsResult
	c.call(protocol.MethodStats, nil, &result)
	return &result
}

// Shutdown sends the shutdown request.
func (c *Client) Shutdown() {
	c.t.Helper()
	c.call(protocol.MethodShutdown, nil, nil)
}

// Notifications returns the params of every notification received for
// method, oldest first.
func (c *Client) Notifications(method string) []json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []json.RawMessage
	for _, n := range c.notifications {
		if n.Method == method {
			out = append(out, n.Params)
		}
	}
	return out
}

// TreeChanges decodes the treeviewer/treeChanged notifications received.
func (c *Client) TreeChanges() []protocol.TreeChangedParams {
	var out []protocol.TreeChangedParams
	for _, raw := range c.Notifications(protocol.MethodTreeChanged) {
		var p protocol.TreeChangedParams
		if json.Unmarshal(raw, &p) == nil {
			out = append(out, p)
		}
	}
	return out
}

// TreeErrors decodes the treeviewer/treeError notifications received.
func (c *Client) TreeErrors() []protocol.TreeErrorParams {
	var out []protocol.TreeErrorParams
	for _, raw := range c.Notifications(protocol.MethodTreeError) {
		var p protocol.TreeErrorParams
		if json.Unmarshal(raw, &p) == nil {
			out = append(out, p)
		}
	}
	return out
}

// WaitForNotification polls until at least n notifications for method have
// arrived, failing the test after timeout.
func (c *Client) WaitForNotification(method string, n int, timeout time.Duration) []json.RawMessage {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		got := c.Notifications(method)
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			c.t.Fatalf("timed out waiting for %d %s notifications, got %d", n, method, len(got))
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Call sends a request and decodes its result into result. Error responses
// are returned as *jsonrpc2.Error.
func (c *Client) Call(method string, params, result interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Call(ctx, method, params, result)
}

func (c *Client) call(method string, params, result interface{}) {
	c.t.Helper()
	if err := c.Call(method, params, result); err != nil {
		c.t.Fatalf("call %s failed: %v", method, err)
	}
}

func (c *Client) notify(method string, params interface{}) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.conn.Notify(ctx, method, params); err != nil {
		c.t.Fatalf("notify %s failed: %v", method, err)
	}
}
