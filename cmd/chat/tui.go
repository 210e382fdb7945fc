package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/janhq/support-chat/internal/interfaces/tui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	app, err := newClientApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	unbind := app.session.Bind(ctx, app.auth)
	defer unbind()
	app.signIn(ctx)

	model := tui.New(ctx, app.session, app.auth, app.log)
	defer model.Close()

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return err
	}
	return nil
}
