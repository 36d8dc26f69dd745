package treeviewer

import (
	"context"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/LukasParke/treeviewer/document"
	"github.com/LukasParke/treeviewer/inspector"
	"github.com/LukasParke/treeviewer/protocol"
	"github.com/LukasParke/treeviewer/treesitter"
)

// Action titles offered while stepping through query matches.
const (
	ActionNext = "Next"
	ActionStop = "Stop"
)

// ClientProxy sends requests and notifications from server to client.
type ClientProxy struct {
	conn *jsonrpc2.Conn
}

func newClientProxy(conn *jsonrpc2.Conn) *ClientProxy {
	return &ClientProxy{conn: conn}
}

// LogMessage sends a log message to the client.
func (c *ClientProxy) LogMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return c.conn.Notify(ctx, protocol.MethodLogMessage, &protocol.LogMessageParams{
		Type:    typ,
		Message: message,
	})
}

// ShowMessage sends a show message notification to the client.
func (c *ClientProxy) ShowMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return c.conn.Notify(ctx, protocol.MethodShowMessage, &protocol.ShowMessageParams{
		Type:    typ,
		Message: message,
	})
}

// ShowMessageRequest sends a show message request and waits for the user to
// pick an action. A dismissed message yields nil.
func (c *ClientProxy) ShowMessageRequest(ctx context.Context, params *protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error) {
	var item *protocol.MessageActionItem
	if err := c.conn.Call(ctx, protocol.MethodShowMessageRequest, params, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// ShowDocument asks the client to show a document, optionally selecting a
// range in it.
func (c *ClientProxy) ShowDocument(ctx context.Context, params *protocol.ShowDocumentParams) (*protocol.ShowDocumentResult, error) {
	var result protocol.ShowDocumentResult
	if err := c.conn.Call(ctx, protocol.MethodShowDocument, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TreeChanged tells the client the active document has a new tree.
func (c *ClientProxy) TreeChanged(ctx context.Context, params *protocol.TreeChangedParams) error {
	return c.conn.Notify(ctx, protocol.MethodTreeChanged, params)
}

// TreeError tells the client the active document's tree could not be
// refreshed.
func (c *ClientProxy) TreeError(ctx context.Context, params *protocol.TreeErrorParams) error {
	return c.conn.Notify(ctx, protocol.MethodTreeError, params)
}

// Confirm implements inspector.Confirmer with a Next/Stop message request.
// Only picking Next counts as yes.
func (c *ClientProxy) Confirm(ctx context.Context, message string) (bool, error) {
	item, err := c.ShowMessageRequest(ctx, &protocol.ShowMessageRequestParams{
		Type:    protocol.Info,
		Message: message,
		Actions: []protocol.MessageActionItem{{Title: ActionNext}, {Title: ActionStop}},
	})
	if err != nil {
		return false, err
	}
	return item != nil && item.Title == ActionNext, nil
}

// Revealer returns an inspector.Revealer that selects nodes of the document
// at uri in the client's editor.
func (c *ClientProxy) Revealer(uri protocol.DocumentURI) inspector.Revealer {
	return &clientRevealer{client: c, uri: uri}
}

type clientRevealer struct {
	client *ClientProxy
	uri    protocol.DocumentURI
}

func (r *clientRevealer) Reveal(ctx context.Context, node treesitter.Node) error {
	selection := document.NewLineIndex(string(node.Tree().Source())).
		Range(int(node.StartIndex()), int(node.EndIndex()))
	result, err := r.client.ShowDocument(ctx, &protocol.ShowDocumentParams{
		URI:       r.uri,
		TakeFocus: true,
		Selection: &selection,
	})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("client could not show %s", r.uri)
	}
	return nil
}
