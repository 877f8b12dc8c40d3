package service

import (
	"encoding/json"
	"fmt"
	"os"

	"ba6-ai-server/internal/domain"
)

// CatalogRules is the operator-curated classification data: per-modality
// allow-lists that override inference, and the keyword sets used when a
// modality has no allow-list.
type CatalogRules struct {
	AllowLists map[domain.Modality][]domain.AllowListEntry `json:"allow_lists"`
	Keywords   map[domain.Modality][]string                `json:"keywords"`
}

// DefaultCatalogRules returns the built-in rules. Callers get their own copy.
func DefaultCatalogRules() CatalogRules {
	return CatalogRules{
		AllowLists: map[domain.Modality][]domain.AllowListEntry{
			domain.ModalityImage: defaultImageModels(),
			domain.ModalityText:  defaultTextModels(),
			domain.ModalityVideo: defaultVideoModels(),
		},
		Keywords: map[domain.Modality][]string{
			domain.ModalityImage: {
				"image", "img", "vision", "diffusion", "sdxl", "stable", "flux",
				"schnell", "turbo", "photo", "photography", "photoreal",
				"illustration", "anime", "art", "render", "sketch", "visual",
				"portrait", "painting",
			},
			domain.ModalityText: {
				"text", "chat", "llm", "language", "completion", "instruct",
				"assistant", "gpt", "llama", "mistral", "mixtral", "qwen", "gemma",
				"claude", "command", "cohere", "reason", "summarize",
				"summarization", "nlp", "dialog",
			},
			domain.ModalityVideo: {
				"video", "movie", "animation", "animate", "frame", "frames", "clip",
				"video-to-video", "image-to-video", "text-to-video",
			},
		},
	}
}

// LoadCatalogRules reads a JSON rules file and overlays it on the defaults.
// A modality present in the file replaces the default entry; an empty
// allow-list turns keyword inference on for that modality.
func LoadCatalogRules(path string) (CatalogRules, error) {
	rules := DefaultCatalogRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("failed to read catalog rules: %w", err)
	}

	var override CatalogRules
	if err := json.Unmarshal(data, &override); err != nil {
		return rules, fmt.Errorf("failed to parse catalog rules: %w", err)
	}
	for modality, entries := range override.AllowLists {
		rules.AllowLists[modality] = entries
	}
	for modality, keywords := range override.Keywords {
		rules.Keywords[modality] = keywords
	}
	return rules, nil
}

func defaultImageModels() []domain.AllowListEntry {
	return []domain.AllowListEntry{
		{ID: "venice-sd35", Name: "Venice SD35"},
		{ID: "hidream", Name: "HiDream"},
		{ID: "flux-2-pro", Name: "Flux 2 Pro"},
		{ID: "flux-2-max", Name: "Flux 2 Max"},
		{ID: "gpt-image-1-5", Name: "GPT Image 1.5"},
		{ID: "imagineart-1.5-pro", Name: "ImagineArt 1.5 Pro"},
		{ID: "nano-banana-pro", Name: "Nano Banana Pro"},
		{ID: "seedream-v4", Name: "Seedream V4.5"},
		{ID: "lustify-sdxl", Name: "Lustify SDXL"},
		{ID: "lustify-v7", Name: "Lustify v7"},
		{ID: "qwen-image", Name: "Qwen Image"},
		{ID: "wai-illustrious", Name: "Anime (WAI)"},
		{ID: "z-image-turbo", Name: "Z-Image Turbo"},
		{ID: "bg-remover", Name: "Background Remover"},
		{ID: "upscaler", Name: "Upscaler"},
		{ID: "qwen-edit", Name: "Qwen Edit 2511"},
	}
}

func defaultTextModels() []domain.AllowListEntry {
	return []domain.AllowListEntry{
		{ID: "venice-uncensored", Name: "Venice Uncensored 1.1"},
		{ID: "zai-org-glm-4.7", Name: "GLM 4.7"},
		{ID: "qwen3-4b", Name: "Venice Small"},
		{ID: "mistral-31-24b", Name: "Venice Medium"},
		{ID: "qwen3-235b-a22b-thinking-2507", Name: "Qwen 3 235B A22B Thinking 2507"},
		{ID: "qwen3-235b-a22b-instruct-2507", Name: "Qwen 3 235B A22B Instruct 2507"},
		{ID: "qwen3-next-80b", Name: "Qwen 3 Next 80B"},
		{ID: "qwen3-coder-480b-a35b-instruct", Name: "Qwen 3 Coder 480B"},
		{ID: "hermes-3-llama-3.1-405b", Name: "Hermes 3 Llama 3.1 405B"},
		{ID: "google-gemma-3-27b-it", Name: "Google Gemma 3 27B Instruct"},
		{ID: "grok-41-fast", Name: "Grok 4.1 Fast"},
		{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro Preview"},
		{ID: "gemini-3-flash-preview", Name: "Gemini 3 Flash Preview"},
		{ID: "claude-opus-45", Name: "Claude Opus 4.5"},
		{ID: "claude-sonnet-45", Name: "Claude Sonnet 4.5"},
		{ID: "openai-gpt-oss-120b", Name: "OpenAI GPT OSS 120B"},
		{ID: "kimi-k2-thinking", Name: "Kimi K2 Thinking"},
		{ID: "deepseek-v3.2", Name: "DeepSeek V3.2"},
		{ID: "llama-3.2-3b", Name: "Llama 3.2 3B"},
		{ID: "llama-3.3-70b", Name: "Llama 3.3 70B"},
		{ID: "openai-gpt-52", Name: "GPT-5.2"},
		{ID: "openai-gpt-52-codex", Name: "GPT-5.2 Codex"},
		{ID: "minimax-m21", Name: "MiniMax M2.1"},
		{ID: "grok-code-fast-1", Name: "Grok Code Fast 1"},
		{ID: "kimi-k2-5", Name: "Kimi K2.5"},
		{ID: "qwen3-vl-235b-a22b", Name: "Qwen3 VL 235B"},
	}
}

func defaultVideoModels() []domain.AllowListEntry {
	return []domain.AllowListEntry{
		{ID: "wan-2.6-image-to-video", Name: "Wan 2.6 Image to Video"},
		{ID: "wan-2.6-flash-image-to-video", Name: "Wan 2.6 Flash Image to Video"},
		{ID: "wan-2.6-text-to-video", Name: "Wan 2.6 Text to Video"},
		{ID: "wan-2.5-preview-image-to-video", Name: "Wan 2.5 Preview Image to Video"},
		{ID: "wan-2.5-preview-text-to-video", Name: "Wan 2.5 Preview Text to Video"},
		{ID: "wan-2.2-a14b-text-to-video", Name: "Wan 2.2 A14B Text to Video"},
		{ID: "wan-2.1-pro-image-to-video", Name: "Wan 2.1 Pro Image to Video"},
		{ID: "ltx-2-fast-image-to-video", Name: "LTX Video 2.0 Fast Image to Video"},
		{ID: "ltx-2-fast-text-to-video", Name: "LTX Video 2.0 Fast Text to Video"},
		{ID: "ltx-2-full-image-to-video", Name: "LTX Video 2.0 Full Image to Video"},
		{ID: "ltx-2-full-text-to-video", Name: "LTX Video 2.0 Full Text to Video"},
		{ID: "ltx-2-19b-full-text-to-video", Name: "LTX Video 2.0 19B Text to Video"},
		{ID: "ltx-2-19b-full-image-to-video", Name: "LTX Video 2.0 19B Image to Video"},
		{ID: "ltx-2-19b-distilled-text-to-video", Name: "LTX Video 2.0 19B Distilled Text to Video"},
		{ID: "ltx-2-19b-distilled-image-to-video", Name: "LTX Video 2.0 19B Distilled Image to Video"},
		{ID: "ovi-image-to-video", Name: "Ovi Image to Video"},
		{ID: "kling-2.6-pro-text-to-video", Name: "Kling 2.6 Pro Text to Video"},
		{ID: "kling-2.6-pro-image-to-video", Name: "Kling 2.6 Pro Image to Video"},
		{ID: "kling-2.5-turbo-pro-text-to-video", Name: "Kling 2.5 Turbo Pro Text to Video"},
		{ID: "kling-2.5-turbo-pro-image-to-video", Name: "Kling 2.5 Turbo Pro Image to Video"},
		{ID: "longcat-distilled-image-to-video", Name: "Longcat Distilled Image to Video"},
		{ID: "longcat-distilled-text-to-video", Name: "Longcat Distilled Text to Video"},
		{ID: "longcat-image-to-video", Name: "Longcat Full Quality Image to Video"},
		{ID: "longcat-text-to-video", Name: "Longcat Full Quality Text to Video"},
		{ID: "veo3-fast-text-to-video", Name: "Veo 3 Fast Text to Video"},
		{ID: "veo3-fast-image-to-video", Name: "Veo 3 Fast Image to Video"},
		{ID: "veo3-full-text-to-video", Name: "Veo 3 Full Quality Text to Video"},
		{ID: "veo3-full-image-to-video", Name: "Veo 3 Full Quality Image to Video"},
		{ID: "veo3.1-fast-text-to-video", Name: "Veo 3.1 Fast Text to Video"},
		{ID: "veo3.1-fast-image-to-video", Name: "Veo 3.1 Fast Image to Video"},
		{ID: "veo3.1-full-text-to-video", Name: "Veo 3.1 Full Quality Text to Video"},
		{ID: "veo3.1-full-image-to-video", Name: "Veo 3.1 Full Quality Image to Video"},
		{ID: "sora-2-image-to-video", Name: "Sora 2 Image to Video"},
		{ID: "sora-2-pro-image-to-video", Name: "Sora 2 Pro Image to Video"},
		{ID: "sora-2-text-to-video", Name: "Sora 2 Text to Video"},
		{ID: "sora-2-pro-text-to-video", Name: "Sora 2 Pro Text to Video"},
	}
}
