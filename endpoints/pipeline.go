package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/taipm/argoproxy/appctx"
	"github.com/taipm/argoproxy/errs"
	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/logging"
	"github.com/taipm/argoproxy/toolcall"
	"github.com/taipm/argoproxy/translate"
	argowire "github.com/taipm/argoproxy/wire/argo"
)

// pipelineResult is everything a response renderer needs once the upstream
// round trip has completed.
type pipelineResult struct {
	Result     toolcall.Result
	Usage      *ir.Usage
	Family     ir.Family
	InternalID string
}

// runPipeline implements spec.md §4.I's per-request pipeline for the three
// text-generation endpoints (chat completions, legacy completions,
// Anthropic messages): image fetch, tool rewrite, model resolution, Argo
// request composition, the upstream POST, and output normalisation. It is
// shared because the three endpoints differ only in how the client
// envelope is parsed and how the result is re-rendered.
func runPipeline(ctx context.Context, app *appctx.Context, req *ir.Request, clientFamily ir.Family, headers http.Header) (pipelineResult, error) {
	warnings := app.Images.Fetch(ctx, req)
	for _, w := range warnings {
		app.Logger.Warn(ctx, "image fetch warning", logging.F("detail", w.String()))
	}

	family := clientFamily
	internalModel := req.Model

	// In --dev mode, and for --native-openai/--native-anthropic requests of
	// the matching client dialect, model resolution is skipped and the
	// client's model name and family are used as-is. The body is still built
	// as an Argo envelope and the reply parsed as Argo's; only the native
	// modes change the upstream URL (below). The client's request is not
	// forwarded byte-for-byte.
	passthrough := app.Config.Dev ||
		(clientFamily == ir.FamilyOpenAI && app.Config.NativeOpenAI) ||
		(clientFamily == ir.FamilyAnthropic && app.Config.NativeAnthropic)

	if !passthrough {
		modelType := ir.ModelChat
		internalModel = app.Registry.Resolve(req.Model, modelType)
		if f, _, ok := app.Registry.Classify(internalModel); ok {
			family = f
		}
	}

	toolcall.RewriteForFamily(req, family)

	user := app.Config.ProxyUser
	argoReq, err := translate.BuildArgoRequest(*req, family, internalModel, user)
	if err != nil {
		return pipelineResult{}, err
	}
	argoReq.Stream = false // the client-visible stream is synthesised locally (spec.md §4.H)

	payload, err := json.Marshal(argoReq)
	if err != nil {
		return pipelineResult{}, errs.New(errs.Internal, "endpoints.runPipeline", err)
	}

	upstreamURL := app.Config.ArgoAPIURL + "/chat/"
	switch {
	case clientFamily == ir.FamilyOpenAI && app.Config.NativeOpenAI:
		upstreamURL = app.Config.OpenAIBaseURL + "/chat/completions"
	case clientFamily == ir.FamilyAnthropic && app.Config.NativeAnthropic:
		upstreamURL = app.Config.AnthropicBaseURL + "/messages"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(payload))
	if err != nil {
		return pipelineResult{}, errs.New(errs.Internal, "endpoints.runPipeline", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	copyForwardedHeaders(httpReq.Header, headers)

	resp, err := app.Session.Do(httpReq)
	if err != nil {
		return pipelineResult{}, errs.New(errs.UpstreamUnavailable, "endpoints.runPipeline", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pipelineResult{}, errs.New(errs.UpstreamUnavailable, "endpoints.runPipeline", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pipelineResult{}, errs.New(errs.UpstreamRejected, "endpoints.runPipeline", fmt.Errorf("upstream returned %d", resp.StatusCode)).WithDetail("body", string(body))
	}

	var argoResp argowire.Response
	if err := json.Unmarshal(body, &argoResp); err != nil {
		return pipelineResult{}, errs.New(errs.UpstreamInvalidResponse, "endpoints.runPipeline", err)
	}

	result, err := toolcall.Normalize(ctx, argoResp.Response, family, app.LeakLog, app.Config.EnableLeakedToolFix)
	if err != nil {
		return pipelineResult{}, err
	}
	if result.Text == nil && len(result.ToolCalls) == 0 {
		return pipelineResult{}, errs.New(errs.UpstreamEmpty, "endpoints.runPipeline", fmt.Errorf("upstream response had neither content nor tool calls"))
	}

	var usage *ir.Usage
	if argoResp.Usage != nil {
		usage = &ir.Usage{
			PromptTokens:     argoResp.Usage.PromptTokens,
			CompletionTokens: argoResp.Usage.CompletionTokens,
			TotalTokens:      argoResp.Usage.TotalTokens,
		}
	}

	app.Logger.Debug(ctx, "pipeline resolved model",
		logging.F("alias", req.Model),
		logging.F("internal_id", internalModel),
		logging.F("family", string(family)),
		logging.F("passthrough", passthrough),
	)

	return pipelineResult{Result: result, Usage: usage, Family: family, InternalID: internalModel}, nil
}
