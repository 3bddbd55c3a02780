package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// ParsedLine is one structured line item extracted from a free-text request.
type ParsedLine struct {
	ItemName string `json:"item_name" jsonschema_description:"The exact item name from the provided catalog list. Map synonyms and loose descriptions to the closest catalog name."`
	Quantity int64  `json:"quantity" jsonschema_description:"The number of units requested (always positive)."`
}

// ParsedRequest is the structured shape of a customer resupply request.
type ParsedRequest struct {
	Lines          []ParsedLine `json:"lines" jsonschema_description:"All line items mentioned in the request. Items not matching any catalog name must still be included verbatim so the engine can report them."`
	RequiredByDate string       `json:"required_by_date" jsonschema_description:"The delivery deadline in YYYY-MM-DD format, or an empty string if the request names none."`
}

// ParserService turns free-text resupply requests into structured line items.
type ParserService interface {
	ParseRequest(ctx context.Context, text string, catalogNames []string) (*ParsedRequest, error)
}

// Parser implements ParserService against the OpenAI Responses API using a
// strict JSON schema so the model can only answer in the structured shape.
type Parser struct {
	client *openai.Client
}

func NewParser(apiKey string) *Parser {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Parser{client: &client}
}

func (p *Parser) ParseRequest(ctx context.Context, text string, catalogNames []string) (*ParsedRequest, error) {
	prompt := fmt.Sprintf(`You are the intake clerk for an outfitting supply company.
Extract the structured line items from the customer's resupply request.
Rules:
1. Use ONLY item names from the catalog list below; normalize plurals, abbreviations and loose descriptions to the closest catalog name.
2. If a requested item has no plausible catalog match, keep the customer's wording as the item name.
3. Quantities are whole positive numbers.
4. Report a delivery deadline only if the request states one, as YYYY-MM-DD.

Catalog:
%s

Request: %s`, strings.Join(catalogNames, "\n"), text)

	schemaJSON, err := json.Marshal(generateSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "resupply_request",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("Structured line items of a resupply request"),
				},
			},
		},
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var parsed ParsedRequest
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	if err := parsed.Validate(); err != nil {
		return nil, fmt.Errorf("parsed request invalid: %w", err)
	}
	return &parsed, nil
}

// Validate enforces the structural rules the engine relies on.
func (r *ParsedRequest) Validate() error {
	if len(r.Lines) == 0 {
		return fmt.Errorf("request contains no line items")
	}
	for i, line := range r.Lines {
		if strings.TrimSpace(line.ItemName) == "" {
			return fmt.Errorf("line %d has no item name", i+1)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("line %d has non-positive quantity %d", i+1, line.Quantity)
		}
	}
	if r.RequiredByDate != "" {
		if _, err := time.Parse("2006-01-02", r.RequiredByDate); err != nil {
			return fmt.Errorf("invalid required-by date %q: %w", r.RequiredByDate, err)
		}
	}
	return nil
}

func generateSchema() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v ParsedRequest
	return reflector.Reflect(v)
}
