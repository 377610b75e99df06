package cmd

import (
	"encoding/json"

	"github.com/botads/botads-go/botads"
	"github.com/botads/botads-go/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdCode() *cobra.Command {
	var async bool
	cmd := &cobra.Command{
		Use:   "code USER_TG_ID",
		Short: "Request a short code for a Telegram user and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			awsCtl, err := setupAWS(ctx)
			if err != nil {
				return err
			}
			if err = resolveCredentials(ctx, awsCtl); err != nil {
				return err
			}
			if config.Botads.BotID == "" {
				return errors.New("missing Botads bot id")
			}
			client, err := newBotadsClient()
			if err != nil {
				return err
			}
			defer client.Close()

			var code *botads.CodeResponse
			if async {
				result := <-client.CreateCodeAsync(ctx, config.Botads.BotID, args[0])
				code, err = result.Response, result.Err
			} else {
				code, err = client.CreateCode(ctx, config.Botads.BotID, args[0])
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(code)
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "Issue the request in the background and wait for its result")
	return cmd
}
