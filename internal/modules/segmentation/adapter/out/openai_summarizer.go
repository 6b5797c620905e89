package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	segmentationout "focustrail/internal/modules/segmentation/port/out"
	"focustrail/internal/platform/schema"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const (
	summaryInstructions = `You describe one block of desktop activity in a single short sentence.
You receive the application, the main window title, how long it lasted and text recognized on screen.
Say what the person was working on, not what the screen showed. No more than 20 words.`
	maxPromptChars = 6000
)

type segmentSummary struct {
	Summary string `json:"summary" jsonschema:"required,description=One sentence describing the activity"`
}

var segmentSummarySchema = schema.ForOpenAI[segmentSummary]()

// OpenAISummarizer turns a segment's recognized text into a one-line summary
// using the Responses API with a strict JSON schema.
type OpenAISummarizer struct {
	client *openai.Client
	model  string
	waits  []time.Duration
}

func NewOpenAISummarizer(apiKey, model string) (*OpenAISummarizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is empty")
	}
	if model == "" {
		return nil, errors.New("openai model is empty")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAISummarizer{
		client: &client,
		model:  model,
		waits:  []time.Duration{5 * time.Second, 30 * time.Second},
	}, nil
}

var _ segmentationout.Summarizer = (*OpenAISummarizer)(nil)

func (s *OpenAISummarizer) Summarize(ctx context.Context, req segmentationout.SummaryRequest) (string, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "SegmentSummary",
			Schema:      segmentSummarySchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Segment summary JSON"),
			Type:        "json_schema",
		},
	}
	params := responses.ResponseNewParams{
		Model:           s.model,
		MaxOutputTokens: openai.Int(200),
		Instructions:    openai.String(summaryInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(BuildSummaryPrompt(req), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := s.callWithRetry(ctx, params)
	if err != nil {
		return "", fmt.Errorf("request summary: %w", err)
	}
	return DecodeSummary(resp.OutputText())
}

func (s *OpenAISummarizer) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := s.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		if attempt >= len(s.waits) || !isRetryable(err) {
			return nil, err
		}
		select {
		case <-time.After(s.waits[attempt]):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "too many requests", "500", "502", "503", "server_error"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// BuildSummaryPrompt renders the request as plain text, keeping the newest
// recognized text when the total exceeds the prompt budget.
func BuildSummaryPrompt(req segmentationout.SummaryRequest) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "Application: %s\n", req.AppID)
	if req.Owner != "" {
		fmt.Fprintf(b, "Process: %s\n", req.Owner)
	}
	if req.WindowTitle != "" {
		fmt.Fprintf(b, "Window title: %s\n", req.WindowTitle)
	}
	fmt.Fprintf(b, "Duration: %s\n\nRecognized text:\n", (time.Duration(req.DurationSecs) * time.Second).String())

	budget := maxPromptChars
	var kept []string
	for i := len(req.Texts) - 1; i >= 0 && budget > 0; i-- {
		text := strings.TrimSpace(req.Texts[i])
		if text == "" {
			continue
		}
		if len(text) > budget {
			text = text[len(text)-budget:]
		}
		budget -= len(text)
		kept = append(kept, text)
	}
	for i := len(kept) - 1; i >= 0; i-- {
		b.WriteString("---\n")
		b.WriteString(kept[i])
		b.WriteString("\n")
	}
	return b.String()
}

// DecodeSummary accepts the model output as bare JSON or JSON wrapped in prose.
func DecodeSummary(output string) (string, error) {
	s := strings.TrimSpace(output)
	if s == "" {
		return "", io.ErrUnexpectedEOF
	}
	var out segmentSummary
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		start := strings.IndexByte(s, '{')
		end := strings.LastIndexByte(s, '}')
		if start == -1 || end <= start {
			return "", fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
		}
		if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
			return "", fmt.Errorf("decode summary: %w", err)
		}
	}
	summary := strings.TrimSpace(out.Summary)
	if summary == "" {
		return "", errors.New("model returned an empty summary")
	}
	return summary, nil
}
