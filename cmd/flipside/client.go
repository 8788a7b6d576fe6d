package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/flipside/internal/client"
	"github.com/lox/flipside/internal/tui"
)

type ClientCmd struct {
	Server  string `short:"s" default:"http://localhost:8080" help:"Server URL to connect to"`
	LogFile string `help:"Write client logs to this file (stdout is owned by the TUI)"`
	Debug   bool   `help:"Enable debug logging"`
}

func (c *ClientCmd) Run() error {
	// The terminal belongs to the TUI, so logs go to a file or nowhere.
	var logWriter io.Writer = io.Discard
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logWriter = f
	}

	logger := log.New(logWriter)
	if c.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	cl := client.New(c.Server, logger)
	if err := cl.Connect(); err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = cl.Disconnect() }()

	program := tea.NewProgram(tui.New(cl, logger), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
