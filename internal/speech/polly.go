package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
)

// PollySynthesizer renders speech through Amazon Polly. Credentials come from
// the default AWS chain; only the region and voice are ours to pick.
type PollySynthesizer struct {
	client *polly.Client
	voice  pollytypes.VoiceId
}

type PollyConfig struct {
	Region  string
	VoiceID string
}

func NewPollySynthesizer(ctx context.Context, cfg PollyConfig) (*PollySynthesizer, error) {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	voice := strings.TrimSpace(cfg.VoiceID)
	if voice == "" {
		voice = "Joanna"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &PollySynthesizer{
		client: polly.NewFromConfig(awsCfg),
		voice:  pollytypes.VoiceId(voice),
	}, nil
}

func (p *PollySynthesizer) AudioExt() string { return ".mp3" }

func (p *PollySynthesizer) Synthesize(ctx context.Context, text, outPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty synthesis text")
	}

	out, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       pollytypes.EngineNeural,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      p.voice,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("polly %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Errorf("polly synthesize: %w", err)
	}
	defer out.AudioStream.Close()

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.AudioStream); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
