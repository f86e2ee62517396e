// Package extract turns free text into a validated CategorySet through a
// schema-constrained chat completion.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

// SchemaName is the structured-output schema name sent to the provider.
const SchemaName = "resume_extraction_schema"

const systemPrompt = "You extract information from resumes and return them in a structured JSON format."

const userPromptTemplate = `Extract or predict the following information from the given resume text:
- Roles: the roles held by the individual (e.g., Software Engineer, Project Manager).
- Skills: the technical skills possessed by the individual (e.g., Java, Python, Project Management).
- Seniority: extract or predict the seniority level from experience, technologies, etc. (e.g., Junior, Mid-level, Senior, or years of experience).
- Industry: the industry/industries related to the experience (e.g., IT, Finance, Healthcare).

Resume:
%s`

// Service is the Category Extractor.
type Service struct {
	llm      Completer
	model    string
	schema   json.RawMessage
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates an extractor. An empty model uses the completer's default.
func New(llm Completer, model string, logger *zap.Logger) (*Service, error) {
	schema, err := CategorySchema()
	if err != nil {
		return nil, err
	}
	return &Service{
		llm:      llm,
		model:    model,
		schema:   schema,
		validate: validator.New(),
		logger:   logger,
	}, nil
}

// CategorySchema returns the strict JSON schema of domain.CategorySet:
// four required string arrays and no additional properties.
func CategorySchema() (json.RawMessage, error) {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(&domain.CategorySet{})
	if schema == nil {
		return nil, errors.New("generated category schema is nil")
	}
	schema.Version = ""

	data, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal category schema: %w", err)
	}
	return data, nil
}

// Extract asks the model for the categories of text and validates the reply.
// A reply that does not match the schema fails with domain.ErrSchemaValidation;
// a failed call fails with domain.ErrExtraction.
func (s *Service) Extract(ctx context.Context, text string) (domain.CategorySet, error) {
	res, err := s.llm.Complete(ctx, domain.ChatRequest{
		Model: s.model,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: fmt.Sprintf(userPromptTemplate, text)},
		},
		Schema: &domain.ResponseSchema{Name: SchemaName, Schema: s.schema, Strict: true},
	})
	if err != nil {
		return domain.CategorySet{}, fmt.Errorf("extract categories: %w: %w", domain.ErrExtraction, err)
	}

	set, err := s.decode(res.Content)
	if err != nil {
		s.logger.Warn("Rejected extraction output", zap.Error(err), zap.Int("content_len", len(res.Content)))
		return domain.CategorySet{}, err
	}
	return set, nil
}

// decode parses content strictly. The reply must be a single object holding
// exactly the four lower-case category keys, each an array of JSON strings.
// Key matching is case-sensitive and null items are rejected.
func (s *Service) decode(content string) (domain.CategorySet, error) {
	dec := json.NewDecoder(strings.NewReader(content))

	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return domain.CategorySet{}, fmt.Errorf("decode categories: %w: %w", domain.ErrSchemaValidation, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.CategorySet{}, fmt.Errorf("decode categories: trailing data: %w", domain.ErrSchemaValidation)
	}
	if raw == nil {
		return domain.CategorySet{}, fmt.Errorf("decode categories: not an object: %w", domain.ErrSchemaValidation)
	}

	var set domain.CategorySet
	targets := map[string]*[]string{
		string(domain.CategoryRoles):     &set.Roles,
		string(domain.CategorySkills):    &set.Skills,
		string(domain.CategorySeniority): &set.Seniority,
		string(domain.CategoryIndustry):  &set.Industry,
	}
	for key := range raw {
		if _, ok := targets[key]; !ok {
			return domain.CategorySet{}, fmt.Errorf("decode categories: unknown property %q: %w", key, domain.ErrSchemaValidation)
		}
	}
	for key, dst := range targets {
		values, err := decodeValues(raw[key])
		if err != nil {
			return domain.CategorySet{}, fmt.Errorf("decode categories: %s: %w: %w", key, domain.ErrSchemaValidation, err)
		}
		*dst = values
	}

	if err := s.validate.Struct(set); err != nil {
		return domain.CategorySet{}, fmt.Errorf("validate categories: %w: %w", domain.ErrSchemaValidation, err)
	}
	return set, nil
}

// decodeValues reads one category array. A missing or null value yields nil,
// which the required rule rejects.
func decodeValues(raw json.RawMessage) ([]string, error) {
	if raw == nil || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	values := make([]string, len(items))
	for i, item := range items {
		if len(item) == 0 || item[0] != '"' {
			return nil, fmt.Errorf("item %d is %s, not a string", i, item)
		}
		if err := json.Unmarshal(item, &values[i]); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return values, nil
}
