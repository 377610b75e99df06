package cmd

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/botads/botads-go/internal/config"
	"github.com/botads/botads-go/internal/handler"
	"github.com/botads/botads-go/internal/runtime"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdLambda() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lambda",
		Short: "Receive Botads webhooks as an AWS Lambda function",
	}
	cmd.AddCommand(cmdLambdaHTTP())
	return cmd
}

func cmdLambdaHTTP() *cobra.Command {
	// cmd is the command for running the lambda-http mode.
	return &cobra.Command{
		Use: "http",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildLambda(cmd)
			if err != nil {
				return errors.Wrap(err, "failed to setup lambda")
			}
			logger.Info("lambda starting...")
			lambda.StartWithOptions(rt.Lambda,
				lambda.WithContext(cmd.Context()))
			return nil
		},
	}
}

func buildLambda(cmd *cobra.Command) (*runtime.Runtime, error) {
	logger = logger.With("mode", config.ModeLambda)
	ctx := cmd.Context()
	awsCtl, err := setupAWS(ctx)
	if err != nil {
		return nil, err
	}
	if err = resolveCredentials(ctx, awsCtl); err != nil {
		return nil, err
	}
	logger.Debug("creating webhook handler...")
	hdl, err := newWebhookHandler(ctx, awsCtl, handler.EventHandlerFunc(logEvents))
	if err != nil {
		return nil, err
	}
	logger.Debug("creating runtime...")
	return runtime.NewRuntime(hdl,
		runtime.WithPayloadType(config.Lambda.PayloadType),
		runtime.WithLogger(loggerFor("runtime"))), nil
}
