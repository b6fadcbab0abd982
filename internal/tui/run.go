package tui

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

// Run launches the deck view and blocks until it exits. The controller keeps
// feeding the store from its own goroutines; the view only ever reads
// snapshots.
func Run(cfg Config) error {
	model := NewModel(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			p.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
		}
	}()

	_, err := p.Run()
	return err
}
