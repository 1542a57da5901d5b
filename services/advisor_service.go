package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"hasiru/diagnosis"
)

// AdvisorService asks a generative model to expand a diagnosis into
// long-form advice for farmers.
type AdvisorService struct {
	gen TextGenerator
}

func NewAdvisorService(gen TextGenerator) *AdvisorService {
	return &AdvisorService{gen: gen}
}

var advisorOptions = GenerateOptions{Temperature: 0.4, MaxOutputTokens: 2048, JSON: true}

func advisorPrompt(condition string, labels []diagnosis.Label) string {
	names := diagnosis.Descriptions(diagnosis.TopLabels(labels, diagnosis.DefaultTopN))
	if condition != "" && !strings.Contains(names, condition) {
		names = condition + ", " + names
	}
	return fmt.Sprintf("You are a plant pathology expert. For the following possible plant diseases or conditions: %s, "+
		"provide a JSON object with these keys: symptoms, causes, treatment, prevention. "+
		"For each key, give a long, detailed, multi-paragraph explanation suitable for farmers and agronomists. "+
		"For 'treatment', provide a clear, step-by-step actionable plan, including both organic and chemical options where applicable. "+
		"Include practical advice, background information, and examples where possible. "+
		"Use clear, accessible language, but do not be brief.", strings.TrimSuffix(names, ", "))
}

// Expand returns the model's advice. Fields the model leaves out are empty.
func (a *AdvisorService) Expand(ctx context.Context, condition string, labels []diagnosis.Label) (diagnosis.Advice, error) {
	text, err := a.gen.Generate(ctx, nil, advisorPrompt(condition, labels), advisorOptions)
	if err != nil {
		return diagnosis.Advice{}, err
	}
	return parseAdvice(text)
}

func parseAdvice(text string) (diagnosis.Advice, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return diagnosis.Advice{}, fmt.Errorf("failed to parse advisor JSON: %w", err)
	}
	return diagnosis.Advice{
		Symptoms:   flattenField(raw["symptoms"]),
		Causes:     flattenField(raw["causes"]),
		Treatment:  flattenField(raw["treatment"]),
		Prevention: flattenField(raw["prevention"]),
	}, nil
}

// flattenField accepts a string or a list of strings; models return either.
func flattenField(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			if s := flattenField(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// MergeAdvice prefers non-empty fields of override.
func MergeAdvice(base, override diagnosis.Advice) diagnosis.Advice {
	pick := func(b, o string) string {
		if o != "" {
			return o
		}
		return b
	}
	return diagnosis.Advice{
		Symptoms:   pick(base.Symptoms, override.Symptoms),
		Causes:     pick(base.Causes, override.Causes),
		Treatment:  pick(base.Treatment, override.Treatment),
		Prevention: pick(base.Prevention, override.Prevention),
	}
}
