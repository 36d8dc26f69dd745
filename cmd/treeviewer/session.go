package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/LukasParke/treeviewer/config"
	"github.com/LukasParke/treeviewer/document"
	"github.com/LukasParke/treeviewer/treesitter"
)

// settingsPath is the file named by --config, or the default location.
func settingsPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultPath()
}

// loadSettings reads the settings file and applies the global flags.
func loadSettings() (*config.Settings, error) {
	s, err := config.Load(settingsPath())
	if err != nil {
		return nil, err
	}
	if flagGrammarDir != "" {
		s.GrammarDir = flagGrammarDir
	}
	if flagLogLevel != "" {
		if _, err := config.ParseLevel(flagLogLevel); err != nil {
			return nil, err
		}
		s.LogLevel = flagLogLevel
	}
	return s, nil
}

func newLogger(w io.Writer, s *config.Settings) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.Level()}))
}

// session is a one-shot tree manager over files read from disk.
type session struct {
	settings *config.Settings
	logger   *slog.Logger
	docs     *document.Store
	manager  *treesitter.Manager
}

func newSession(cmd *cobra.Command) (*session, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), settings)
	registry, err := settings.Registry()
	if err != nil {
		return nil, err
	}
	docs := document.NewStore()
	manager, err := treesitter.NewManager(treesitter.Config{
		Registry:     registry,
		GrammarDir:   settings.GrammarDir,
		SingleParser: settings.SingleParser,
		Logger:       logger,
	}, docs)
	if err != nil {
		return nil, err
	}
	return &session{settings: settings, logger: logger, docs: docs, manager: manager}, nil
}

// open reads path and makes it the active document. Without languageID
// the language is picked from the file extension.
func (s *session) open(path, languageID string) (*document.Document, error) {
	if languageID == "" {
		var ok bool
		languageID, ok = s.manager.Registry().LanguageForPath(path)
		if !ok {
			return nil, fmt.Errorf("cannot tell the language of %s; pass --lang", path)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	doc, err := document.FromFile(abs, languageID)
	if err != nil {
		return nil, err
	}
	s.docs.Add(doc)
	if err := s.docs.SetActive(doc.URI()); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *session) Close() {
	s.manager.Close()
}
