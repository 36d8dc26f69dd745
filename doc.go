// Package treeviewer is a JSON-RPC server that lets an editor browse the
// concrete syntax tree of its active document and run tree-sitter queries
// against it.
//
// The server speaks the LSP base protocol for the lifecycle and document
// sync, and adds treeviewer/* methods for the tree view:
//
//	s, err := treeviewer.NewServer("treeviewer", "0.1.0",
//		treeviewer.WithConfigFile(config.DefaultPath()),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//	err = treeviewer.Serve(ctx, s, transport.Spec{Stdio: true})
package treeviewer
