package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/janhq/support-chat/internal/client"
	"github.com/janhq/support-chat/internal/domain/chat"
)

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message and stream the reply to stdout",
	Long: `Send one message and print the assistant reply as it arrives.

When credentials are configured the stored conversation is loaded first and
the exchange is saved afterwards.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	app, err := newClientApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	unbind := app.session.Bind(ctx, app.auth)
	defer unbind()
	app.signIn(ctx)

	out := cmd.OutOrStdout()
	unsubscribe := app.session.Subscribe(replyPrinter(out))
	defer unsubscribe()

	if err := app.session.Send(ctx, strings.Join(args, " ")); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), chat.Apology)
		return err
	}
	fmt.Fprintln(out)
	return nil
}

// replyPrinter writes the growth of the streaming assistant turn.
func replyPrinter(out io.Writer) func(client.State) {
	printed := 0
	return func(state client.State) {
		if !state.Loading {
			return
		}
		last, ok := state.Conversation.Last()
		if !ok || last.Role != chat.RoleAssistant || len(last.Content) <= printed {
			return
		}
		fmt.Fprint(out, last.Content[printed:])
		printed = len(last.Content)
	}
}
