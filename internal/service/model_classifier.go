package service

import (
	"regexp"
	"strings"

	"ba6-ai-server/internal/domain"
)

var tokenSplitter = regexp.MustCompile(`[^a-z0-9]+`)

// hintFields are the top-level descriptor fields scanned for modality hints.
var hintFields = []string{
	"type", "model_type", "modality", "modalities", "capabilities", "tags",
	"categories", "category", "use_case", "input_type", "output_type",
}

// specHintFields are scanned inside model_spec (or spec).
var specHintFields = []string{
	"type", "modality", "modalities", "capabilities", "input", "output",
	"input_type", "output_type", "family", "name", "description",
}

// ModelClassifier infers a model's modalities from free-form catalog
// metadata. It is only consulted for modalities without an allow-list.
type ModelClassifier struct {
	keywords map[domain.Modality][]string
}

func NewModelClassifier(keywords map[domain.Modality][]string) *ModelClassifier {
	return &ModelClassifier{keywords: keywords}
}

// Matches reports whether any hint token contains one of the modality's
// keywords. Multimodal models match every modality.
func (c *ModelClassifier) Matches(model domain.ModelDescriptor, modality domain.Modality) bool {
	tokens := HintTokens(model)
	if len(tokens) == 0 {
		return false
	}
	keywords := c.keywords[modality]
	for _, token := range tokens {
		if strings.Contains(token, "multimodal") {
			return true
		}
		for _, keyword := range keywords {
			if strings.Contains(token, keyword) {
				return true
			}
		}
	}
	return false
}

// Filter keeps the models matching modality, in catalog order.
func (c *ModelClassifier) Filter(models []domain.ModelDescriptor, modality domain.Modality) []domain.ModelDescriptor {
	matched := make([]domain.ModelDescriptor, 0, len(models))
	for _, model := range models {
		if c.Matches(model, modality) {
			matched = append(matched, model)
		}
	}
	return matched
}

// HintTokens returns the deduplicated lowercase tokens of every descriptive
// field of model.
func HintTokens(model domain.ModelDescriptor) []string {
	var tokens []string
	tokens = append(tokens, tokenize(model.ID)...)
	tokens = append(tokens, tokenize(model.Name)...)
	tokens = append(tokens, tokenize(model.Description)...)

	raw := model.Raw
	spec := modelSpec(raw)
	for _, field := range hintFields {
		tokens = append(tokens, tokenize(raw[field])...)
	}
	for _, field := range specHintFields {
		tokens = append(tokens, tokenize(spec[field])...)
	}

	if truthy(raw["supportsVision"]) || truthy(spec["supportsVision"]) {
		tokens = append(tokens, "vision", "image")
	}
	if truthy(raw["supportsText"]) || truthy(spec["supportsText"]) {
		tokens = append(tokens, "text")
	}

	seen := make(map[string]struct{}, len(tokens))
	unique := tokens[:0]
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		unique = append(unique, token)
	}
	return unique
}

func modelSpec(raw map[string]interface{}) map[string]interface{} {
	if spec, ok := raw["model_spec"].(map[string]interface{}); ok {
		return spec
	}
	if spec, ok := raw["spec"].(map[string]interface{}); ok {
		return spec
	}
	return nil
}

// tokenize flattens strings, lists and maps into tokens. Boolean map entries
// contribute their key only when true.
func tokenize(value interface{}) []string {
	switch v := value.(type) {
	case string:
		var tokens []string
		for _, part := range tokenSplitter.Split(strings.ToLower(v), -1) {
			if part != "" {
				tokens = append(tokens, part)
			}
		}
		return tokens
	case []interface{}:
		var tokens []string
		for _, item := range v {
			tokens = append(tokens, tokenize(item)...)
		}
		return tokens
	case []string:
		var tokens []string
		for _, item := range v {
			tokens = append(tokens, tokenize(item)...)
		}
		return tokens
	case map[string]interface{}:
		var tokens []string
		for key, entry := range v {
			if flag, ok := entry.(bool); ok {
				if flag {
					tokens = append(tokens, tokenize(key)...)
				}
				continue
			}
			tokens = append(tokens, tokenize(key)...)
			tokens = append(tokens, tokenize(entry)...)
		}
		return tokens
	default:
		return nil
	}
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}
