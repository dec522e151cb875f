// Package app assembles the relay from configuration for the entrypoints.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"bootcamp-tutor/internal/config"
	"bootcamp-tutor/internal/integrations/openai"
	"bootcamp-tutor/internal/integrations/paramstore"
	"bootcamp-tutor/internal/relay"
)

const tokenParameter = "open-ai-token"

// NewLogger returns the JSON logger used by both entrypoints.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// NewRelay wires the completion client and relay service. The credential
// comes from OPENAI_API_KEY when set, otherwise from SSM under PARAM_PREFIX.
func NewRelay(ctx context.Context, cfg config.Config, logger *slog.Logger) (*relay.Service, error) {
	keys, err := keySource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := openai.NewClient(keys,
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithHTTPClient(openai.NewHTTPClient(cfg.UpstreamHeaderTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create OpenAI client: %w", err)
	}

	svc, err := relay.NewService(relay.OpenAICompleter(client), cfg.Model, relay.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("app: create relay service: %w", err)
	}
	return svc, nil
}

func keySource(ctx context.Context, cfg config.Config) (openai.KeySource, error) {
	if cfg.APIKey != "" {
		return openai.StaticKey(cfg.APIKey), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}
	keys, err := openai.NewParamStoreKey(ssmClient, paramstore.Name(cfg.ParamPrefix, tokenParameter))
	if err != nil {
		return nil, fmt.Errorf("app: create parameter store key source: %w", err)
	}
	return keys, nil
}
