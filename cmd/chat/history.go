package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/janhq/support-chat/internal/client"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored conversation of the signed-in user",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringP("output", "o", "json", "Output format (json, yaml)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported format: %s", format)
	}

	app, err := newClientApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if err := app.auth.SignIn(ctx); err != nil {
		return fmt.Errorf("history needs a signed-in user: %w", err)
	}
	identity := app.auth.Current()

	doc, err := app.store.Load(ctx, *identity)
	if errors.Is(err, client.ErrDocumentNotFound) {
		fmt.Fprintf(cmd.ErrOrStderr(), "no stored conversation for %s\n", identity.DisplayName())
		return nil
	}
	if err != nil {
		return err
	}

	var output []byte
	switch format {
	case "yaml":
		output, err = yaml.Marshal(doc)
	default:
		output, err = json.MarshalIndent(doc, "", "  ")
		output = append(output, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal %s: %w", format, err)
	}
	_, err = cmd.OutOrStdout().Write(output)
	return err
}
