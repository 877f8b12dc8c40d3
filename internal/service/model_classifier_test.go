package service

import (
	"sort"
	"testing"

	"ba6-ai-server/internal/domain"
)

func TestHintTokens(t *testing.T) {
	model, _ := domain.NewModelDescriptor(map[string]interface{}{
		"id":   "Some_Model-V2",
		"tags": []interface{}{"Chat", "fast-path"},
		"capabilities": map[string]interface{}{
			"supportsWebSearch": false,
			"optimizedFor":      "code",
			"vision":            true,
		},
		"model_spec": map[string]interface{}{
			"family":       "llama",
			"supportsText": true,
		},
	})

	tokens := HintTokens(model)
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if set[tok] {
			t.Fatalf("duplicate token %q in %v", tok, tokens)
		}
		set[tok] = true
	}

	for _, want := range []string{"some", "model", "v2", "chat", "fast", "path", "optimizedfor", "code", "vision", "llama", "text"} {
		if !set[want] {
			t.Errorf("expected token %q in %v", want, sortedTokens(tokens))
		}
	}
	if set["supportswebsearch"] {
		t.Errorf("false boolean capability must not contribute its key: %v", sortedTokens(tokens))
	}
}

func TestHintTokens_SupportsVision(t *testing.T) {
	model, _ := domain.NewModelDescriptor(map[string]interface{}{
		"id":             "m1",
		"supportsVision": true,
	})
	tokens := HintTokens(model)
	found := map[string]bool{}
	for _, tok := range tokens {
		found[tok] = true
	}
	if !found["vision"] || !found["image"] {
		t.Fatalf("expected vision and image tokens, got %v", tokens)
	}
}

func TestModelClassifier_Matches(t *testing.T) {
	classifier := NewModelClassifier(DefaultCatalogRules().Keywords)

	tests := []struct {
		name     string
		raw      map[string]interface{}
		modality domain.Modality
		want     bool
	}{
		{"declared image type", map[string]interface{}{"id": "m1", "type": "image"}, domain.ModalityImage, true},
		{"model_type fallback", map[string]interface{}{"id": "m2", "model_type": "text"}, domain.ModalityText, true},
		{"spec modality", map[string]interface{}{"id": "m3", "model_spec": map[string]interface{}{"modality": "video"}}, domain.ModalityVideo, true},
		{"keyword substring", map[string]interface{}{"id": "sdxl-lightning"}, domain.ModalityImage, true},
		{"multimodal matches video", map[string]interface{}{"id": "m4", "tags": []interface{}{"multimodal"}}, domain.ModalityVideo, true},
		{"no hints", map[string]interface{}{"id": "zz"}, domain.ModalityText, false},
		{"image model is not video", map[string]interface{}{"id": "flux-schnell"}, domain.ModalityVideo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, ok := domain.NewModelDescriptor(tt.raw)
			if !ok {
				t.Fatalf("invalid descriptor")
			}
			if got := classifier.Matches(model, tt.modality); got != tt.want {
				t.Errorf("Matches() = %v, want %v (tokens %v)", got, tt.want, HintTokens(model))
			}
		})
	}
}

func sortedTokens(tokens []string) []string {
	out := append([]string(nil), tokens...)
	sort.Strings(out)
	return out
}
