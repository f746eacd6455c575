package translate

import (
	"encoding/json"
	"fmt"

	argowire "github.com/taipm/argoproxy/wire/argo"

	"github.com/taipm/argoproxy/errs"
	"github.com/taipm/argoproxy/ir"
)

// BuildArgoRequest composes the atomic converters into the outbound Argo
// envelope (spec.md §4.C, request path). internalModel is the already
// model-registry-resolved id (spec.md §4.D); user is the per-process user
// field spec.md §6 says is injected into every outbound body, mirrored to
// metadata.user_id for the Anthropic family.
func BuildArgoRequest(req ir.Request, family ir.Family, internalModel, user string) (*argowire.Request, error) {
	messagesJSON, err := MessagesToFamilyJSON(req.Messages, family)
	if err != nil {
		return nil, err
	}

	toolsJSON, err := ToolsToFamilyJSON(req.Tools, family)
	if err != nil {
		return nil, err
	}

	toolChoiceJSON, err := ToolChoiceToFamilyJSON(req.ToolChoice, family)
	if err != nil {
		return nil, err
	}

	out := &argowire.Request{
		Model:       internalModel,
		Messages:    messagesJSON,
		Tools:       toolsJSON,
		ToolChoice:  toolChoiceJSON,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
		Stop:        req.Stop,
		Seed:        req.Seed,
		User:        user,
	}
	if family == ir.FamilyAnthropic && user != "" {
		out.Metadata = map[string]any{"user_id": user}
	}
	return out, nil
}

// SynthesizePromptMessages implements spec.md §4.C step 1: when the
// request omits `messages`, a legacy `prompt` (string or array of strings)
// is accepted by synthesising a single user message with one text part.
// Array prompts are joined with newlines, following original_source's
// behavior where spec.md itself is silent on the join character.
func SynthesizePromptMessages(prompt json.RawMessage) ([]ir.Message, error) {
	var s string
	if err := json.Unmarshal(prompt, &s); err == nil {
		return []ir.Message{{Role: ir.RoleUser, Content: []ir.ContentPart{ir.TextPart(s)}}}, nil
	}
	var arr []string
	if err := json.Unmarshal(prompt, &arr); err == nil {
		joined := ""
		for i, line := range arr {
			if i > 0 {
				joined += "\n"
			}
			joined += line
		}
		return []ir.Message{{Role: ir.RoleUser, Content: []ir.ContentPart{ir.TextPart(joined)}}}, nil
	}
	return nil, errs.New(errs.BadRequest, "translate.SynthesizePromptMessages", fmt.Errorf("prompt must be a string or array of strings"))
}
