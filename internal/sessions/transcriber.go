package sessions

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Transcriber turns session audio into a plain-text transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

type bedrockInvokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockTranscriber invokes an audio-capable Bedrock model with a
// base64 payload and expects a JSON body carrying the transcript text.
type BedrockTranscriber struct {
	api     bedrockInvokeAPI
	modelID string
}

func NewBedrockTranscriber(api bedrockInvokeAPI, modelID string) *BedrockTranscriber {
	if api == nil {
		panic("sessions: bedrock runtime client cannot be nil")
	}
	return &BedrockTranscriber{api: api, modelID: modelID}
}

func (t *BedrockTranscriber) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if strings.TrimSpace(t.modelID) == "" {
		return "", errors.New("sessions: transcribe model id is required")
	}
	if len(audio) == 0 {
		return "", errors.New("sessions: audio is empty")
	}

	payload, err := json.Marshal(map[string]any{
		"task":       "transcribe",
		"audio":      base64.StdEncoding.EncodeToString(audio),
		"media_type": contentType,
	})
	if err != nil {
		return "", fmt.Errorf("sessions: transcribe request marshal: %w", err)
	}

	out, err := t.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(t.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("sessions: transcribe invoke: %w", err)
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(out.Body, &decoded); err != nil {
		return "", fmt.Errorf("sessions: transcribe response parse: %w", err)
	}
	if strings.TrimSpace(decoded.Text) == "" {
		return "", errors.New("sessions: transcribe response was empty")
	}
	return decoded.Text, nil
}
