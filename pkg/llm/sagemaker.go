package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"github.com/aws/smithy-go"
)

// SageMakerProvider backs completions with a conversational model hosted on
// a SageMaker inference endpoint. The endpoint speaks the HuggingFace
// conversational payload: past user inputs, generated responses, and the
// new text. It produces free text only; tool calling stays with the
// orchestrator's other backends.
type SageMakerProvider struct {
	client   *sagemakerruntime.Client
	endpoint string
}

// NewSageMakerProvider resolves AWS credentials from the environment and
// targets the named endpoint.
func NewSageMakerProvider(ctx context.Context, endpoint, region string) (*SageMakerProvider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("sagemaker endpoint name is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SageMakerProvider{
		client:   sagemakerruntime.NewFromConfig(cfg),
		endpoint: endpoint,
	}, nil
}

// Name implements Provider.
func (p *SageMakerProvider) Name() string { return "sagemaker" }

type conversationalInputs struct {
	PastUserInputs     []string `json:"past_user_inputs"`
	GeneratedResponses []string `json:"generated_responses"`
	Text               string   `json:"text"`
}

type conversationalPayload struct {
	Inputs     conversationalInputs `json:"inputs"`
	Parameters map[string]any       `json:"parameters,omitempty"`
}

type conversationalResult struct {
	GeneratedText string `json:"generated_text"`
}

// Complete implements Provider.
func (p *SageMakerProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	payload := toConversationalPayload(req)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Code: ErrCodeInternal, Message: err.Error(), Cause: err}
	}

	out, err := p.client.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(p.endpoint),
		ContentType:  aws.String("application/json"),
		Accept:       aws.String("application/json"),
		Body:         body,
	})
	if err != nil {
		return nil, p.classify(err)
	}

	var result conversationalResult
	if err := json.Unmarshal(out.Body, &result); err != nil {
		// Some containers wrap the result in a single-element array.
		var arr []conversationalResult
		if err2 := json.Unmarshal(out.Body, &arr); err2 != nil || len(arr) == 0 {
			return nil, &ProviderError{Provider: p.Name(), Code: ErrCodeInternal, Message: "undecodable endpoint response", Cause: err}
		}
		result = arr[0]
	}
	return &Response{Text: result.GeneratedText}, nil
}

// toConversationalPayload folds the chat window into the HuggingFace
// conversational shape. System content is prefixed onto the new turn since
// the format has no system slot.
func toConversationalPayload(req Request) conversationalPayload {
	inputs := conversationalInputs{
		PastUserInputs:     []string{},
		GeneratedResponses: []string{},
	}
	var system string
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = m.Content
		case RoleUser:
			if inputs.Text != "" {
				inputs.PastUserInputs = append(inputs.PastUserInputs, inputs.Text)
			}
			inputs.Text = m.Content
		case RoleAssistant:
			inputs.GeneratedResponses = append(inputs.GeneratedResponses, m.Content)
		}
	}
	if system != "" && inputs.Text != "" {
		inputs.Text = system + "\n\n" + inputs.Text
	}

	params := map[string]any{}
	if req.MaxTokens > 0 {
		params["max_length"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		params["temperature"] = req.Temperature
	}
	payload := conversationalPayload{Inputs: inputs}
	if len(params) > 0 {
		payload.Parameters = params
	}
	return payload
}

func (p *SageMakerProvider) classify(err error) *ProviderError {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return &ProviderError{Provider: p.Name(), Code: ErrCodeRateLimited, Message: apiErr.ErrorMessage(), Retryable: true, Cause: err}
		case "ServiceUnavailable", "ModelNotReadyException", "InternalFailure":
			return &ProviderError{Provider: p.Name(), Code: ErrCodeUnavailable, Message: apiErr.ErrorMessage(), Retryable: true, Cause: err}
		case "ModelError", "ValidationError":
			return &ProviderError{Provider: p.Name(), Code: ErrCodeInvalidRequest, Message: apiErr.ErrorMessage(), Cause: err}
		}
	}
	return AsProviderError(p.Name(), err)
}
