package treeviewer

import "github.com/LukasParke/treeviewer/protocol"

// capabilities advertises full document sync and, under experimental, the
// treeviewer methods and the languages the registry resolves.
func (s *Server) capabilities() protocol.ServerCapabilities {
	entries := s.manager.Registry().Entries()
	languages := make([]string, 0, len(entries))
	for _, e := range entries {
		languages = append(languages, e.LanguageID)
	}
	return protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.SyncFull,
		},
		Experimental: &protocol.TreeViewerCapabilities{
			Methods: []string{
				protocol.MethodDidChangeActiveEditor,
				protocol.MethodTree,
				protocol.MethodChildren,
				protocol.MethodReloadTree,
				protocol.MethodQuery,
				protocol.MethodRegisterGrammar,
				protocol.MethodCopyNode,
				protocol.MethodGrammars,
				protocol.MethodStats,
			},
			Languages: languages,
		},
	}
}
