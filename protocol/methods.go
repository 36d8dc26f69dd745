package protocol

// LSP method constants.
const (
	// Lifecycle
	MethodInitialize  = "initialize"
	MethodInitialized = "initialized"
	MethodShutdown    = "shutdown"
	MethodExit        = "exit"

	// Text document sync
	MethodDidOpen   = "textDocument/didOpen"
	MethodDidChange = "textDocument/didChange"
	MethodDidClose  = "textDocument/didClose"

	// Client notifications and requests (server -> client)
	MethodLogMessage         = "window/logMessage"
	MethodShowMessage        = "window/showMessage"
	MethodShowMessageRequest = "window/showMessageRequest"
	MethodShowDocument       = "window/showDocument"
)

// Tree viewer extension methods.
const (
	// Client -> server
	MethodDidChangeActiveEditor = "treeviewer/didChangeActiveEditor"
	MethodTree                  = "treeviewer/tree"
	MethodChildren              = "treeviewer/children"
	MethodReloadTree            = "treeviewer/reloadTree"
	MethodQuery                 = "treeviewer/query"
	MethodRegisterGrammar       = "treeviewer/registerGrammar"
	MethodCopyNode              = "treeviewer/copyNode"
	MethodGrammars              = "treeviewer/grammars"
	MethodStats                 = "treeviewer/stats"

	// Server -> client
	MethodTreeChanged = "treeviewer/treeChanged"
	MethodTreeError   = "treeviewer/treeError"
)
