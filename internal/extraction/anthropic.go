package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/quartalhq/quartal/pkg/formatting"
)

type anthropicService struct {
	client    sdk.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

// New creates an extraction service backed by the Anthropic Messages API.
func New(cfg *Config, logger *slog.Logger) Service {
	return &anthropicService{
		client:    sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.With("system", "extraction"),
	}
}

func (s *anthropicService) Extract(ctx context.Context, documentURL string) (*Fields, error) {
	msg, err := s.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(s.model),
		MaxTokens: s.maxTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.ContentBlockParamUnion{
					OfImage: &sdk.ImageBlockParam{
						Source: sdk.ImageBlockParamSourceUnion{
							OfURL: &sdk.URLImageSourceParam{URL: documentURL},
						},
					},
				},
				sdk.NewTextBlock(extractionPrompt),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	text := collectText(msg)
	if text == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrUnparseable)
	}

	fields, err := formatting.Parse[Fields](text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	s.logger.Debug(
		"document fields extracted",
		"url", documentURL,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
	)

	return &fields, nil
}

func collectText(msg *sdk.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
