package endpoints

import (
	"encoding/json"
	"fmt"

	"github.com/taipm/argoproxy/errs"
	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/translate"
)

// chatEnvelope is the top-level shape shared by the OpenAI chat/completions
// dialect; fields absent from a given endpoint (e.g. Prompt on
// /v1/chat/completions) are simply left at their zero value.
type chatEnvelope struct {
	Model            string              `json:"model"`
	Messages         json.RawMessage     `json:"messages"`
	Prompt           json.RawMessage     `json:"prompt"`
	Tools            json.RawMessage     `json:"tools"`
	ToolChoice       json.RawMessage     `json:"tool_choice"`
	Temperature      *float64            `json:"temperature"`
	TopP             *float64            `json:"top_p"`
	MaxTokens        *int                `json:"max_tokens"`
	Stream           bool                `json:"stream"`
	Stop             json.RawMessage     `json:"stop"`
	Seed             *int64              `json:"seed"`
	User             string              `json:"user"`
	N                *int                `json:"n"`
	PresencePenalty  *float64            `json:"presence_penalty"`
	FrequencyPenalty *float64            `json:"frequency_penalty"`
	LogitBias        map[string]float64  `json:"logit_bias"`
	ResponseFormat   map[string]any      `json:"response_format"`
}

// decodeChatCompletionRequest parses a /v1/chat/completions body into IR
// (spec.md §4.I: requires model and messages).
func decodeChatCompletionRequest(body []byte) (ir.Request, error) {
	var env chatEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ir.Request{}, errs.New(errs.BadRequest, "endpoints.decodeChatCompletionRequest", err)
	}
	if env.Model == "" || len(env.Messages) == 0 {
		return ir.Request{}, errs.New(errs.BadRequest, "endpoints.decodeChatCompletionRequest", fmt.Errorf("model and messages are required"))
	}
	return buildRequestFromEnvelope(env, ir.FamilyOpenAI)
}

// decodeCompletionRequest parses a legacy /v1/completions body (spec.md
// §4.C.1 prompt-synthesis rule, Module I supplement): requires model and
// prompt, no native tool support.
func decodeCompletionRequest(body []byte) (ir.Request, error) {
	var env chatEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ir.Request{}, errs.New(errs.BadRequest, "endpoints.decodeCompletionRequest", err)
	}
	if env.Model == "" || len(env.Prompt) == 0 {
		return ir.Request{}, errs.New(errs.BadRequest, "endpoints.decodeCompletionRequest", fmt.Errorf("model and prompt are required"))
	}
	messages, err := translate.SynthesizePromptMessages(env.Prompt)
	if err != nil {
		return ir.Request{}, err
	}
	req := baseRequestFromEnvelope(env)
	req.Messages = messages
	return req, nil
}

func buildRequestFromEnvelope(env chatEnvelope, family ir.Family) (ir.Request, error) {
	req := baseRequestFromEnvelope(env)

	messages, err := translate.MessagesFromFamilyJSON(env.Messages, family)
	if err != nil {
		return ir.Request{}, err
	}
	req.Messages = messages

	tools, err := translate.ToolsFromFamilyJSON(env.Tools, family)
	if err != nil {
		return ir.Request{}, err
	}
	req.Tools = tools

	toolChoice, err := translate.ToolChoiceFromFamilyJSON(env.ToolChoice, family)
	if err != nil {
		return ir.Request{}, err
	}
	req.ToolChoice = toolChoice

	return req, nil
}

func baseRequestFromEnvelope(env chatEnvelope) ir.Request {
	return ir.Request{
		Model:            env.Model,
		Temperature:      env.Temperature,
		TopP:             env.TopP,
		MaxTokens:        env.MaxTokens,
		Stream:           env.Stream,
		Stop:             parseStopField(env.Stop),
		Seed:             env.Seed,
		PresencePenalty:  env.PresencePenalty,
		FrequencyPenalty: env.FrequencyPenalty,
		LogitBias:        env.LogitBias,
		User:             env.User,
		N:                env.N,
		ResponseFormat:   env.ResponseFormat,
	}
}

// anthropicEnvelope is the /v1/messages request shape (spec.md §6).
type anthropicEnvelope struct {
	Model         string          `json:"model"`
	Messages      json.RawMessage `json:"messages"`
	System        json.RawMessage `json:"system"`
	MaxTokens     *int            `json:"max_tokens"`
	Temperature   *float64        `json:"temperature"`
	TopP          *float64        `json:"top_p"`
	Tools         json.RawMessage `json:"tools"`
	ToolChoice    json.RawMessage `json:"tool_choice"`
	Stream        bool            `json:"stream"`
	StopSequences []string        `json:"stop_sequences"`
	Metadata      struct {
		UserID string `json:"user_id"`
	} `json:"metadata"`
}

// decodeMessagesRequest parses a /v1/messages body into IR. Anthropic
// requires max_tokens on every request; its optional top-level `system`
// field is folded in as a synthesised leading system message.
func decodeMessagesRequest(body []byte) (ir.Request, error) {
	var env anthropicEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ir.Request{}, errs.New(errs.BadRequest, "endpoints.decodeMessagesRequest", err)
	}
	if env.Model == "" || env.MaxTokens == nil || len(env.Messages) == 0 {
		return ir.Request{}, errs.New(errs.BadRequest, "endpoints.decodeMessagesRequest", fmt.Errorf("model, max_tokens, and messages are required"))
	}

	messages, err := translate.MessagesFromFamilyJSON(env.Messages, ir.FamilyAnthropic)
	if err != nil {
		return ir.Request{}, err
	}
	if sysText := anthropicSystemText(env.System); sysText != "" {
		messages = append([]ir.Message{{Role: ir.RoleSystem, Content: []ir.ContentPart{ir.TextPart(sysText)}}}, messages...)
	}

	tools, err := translate.ToolsFromFamilyJSON(env.Tools, ir.FamilyAnthropic)
	if err != nil {
		return ir.Request{}, err
	}
	toolChoice, err := translate.ToolChoiceFromFamilyJSON(env.ToolChoice, ir.FamilyAnthropic)
	if err != nil {
		return ir.Request{}, err
	}

	return ir.Request{
		Model:       env.Model,
		Messages:    messages,
		Tools:       tools,
		ToolChoice:  toolChoice,
		Temperature: env.Temperature,
		TopP:        env.TopP,
		MaxTokens:   env.MaxTokens,
		Stream:      env.Stream,
		Stop:        env.StopSequences,
		User:        env.Metadata.UserID,
	}, nil
}

func anthropicSystemText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	out := ""
	for _, b := range blocks {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}
