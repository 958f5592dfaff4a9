package promptrefine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"

	"mpx-generator-server/modules/common/config"
	geminiretry "mpx-generator-server/modules/common/gemini"
)

type Service struct {
	apiKeys []string
	model   string
	redis   *redis.Client
}

// NewService - nil when no Gemini key is configured; a nil Redis client
// only disables the guest quota
func NewService(redisClient *redis.Client) *Service {
	cfg := config.GetConfig()

	if len(cfg.GeminiAPIKeys) == 0 {
		log.Println("⚠️ [PromptRefine] No Gemini API keys configured, refinement disabled")
		return nil
	}
	if redisClient == nil {
		log.Println("⚠️ [PromptRefine] Redis unavailable - guest quota will be disabled")
	}

	log.Printf("✅ [PromptRefine] Service initialized (%d API keys, model: %s)", len(cfg.GeminiAPIKeys), cfg.GeminiModel)
	return &Service{
		apiKeys: cfg.GeminiAPIKeys,
		model:   cfg.GeminiModel,
		redis:   redisClient,
	}
}

// RefinePrompt - rewrite a raw prompt into a 3D-asset-friendly one.
// Also satisfies the workflow controller's refiner interface.
func (s *Service) RefinePrompt(ctx context.Context, prompt string) (string, error) {
	log.Printf("📤 [PromptRefine] Refining prompt: %s", truncateString(prompt, 60))

	contents := []*genai.Content{
		genai.NewContentFromText(buildRefinePrompt(prompt), genai.RoleUser),
	}

	result, err := geminiretry.GenerateContentWithRetry(
		ctx,
		s.apiKeys,
		s.model,
		contents,
		&genai.GenerateContentConfig{
			Temperature: floatPtr(0.7),
		},
	)
	if err != nil {
		return "", fmt.Errorf("prompt refinement failed: %w", err)
	}

	refined := extractText(result)
	if refined == "" {
		return "", fmt.Errorf("no text in refinement response")
	}

	log.Printf("✅ [PromptRefine] Refined: %s", truncateString(refined, 60))
	return refined, nil
}

// CheckRefineQuota - guest quota lookup. Returns the usage record and
// whether the limit was reached.
func (s *Service) CheckRefineQuota(ctx context.Context, sessionID string) (*RefineUsage, bool, error) {
	if s.redis == nil {
		return &RefineUsage{SessionID: sessionID}, false, nil
	}

	key := refineUsageKey(sessionID)

	data, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return &RefineUsage{
			SessionID:   sessionID,
			FirstUsedAt: time.Now(),
			LastUsedAt:  time.Now(),
		}, false, nil
	}
	if err != nil {
		log.Printf("⚠️ [PromptRefine] Redis error: %v", err)
		return nil, false, err
	}

	var usage RefineUsage
	if err := json.Unmarshal([]byte(data), &usage); err != nil {
		log.Printf("⚠️ [PromptRefine] Failed to parse usage record: %v", err)
		return nil, false, err
	}

	return &usage, usage.UsedCount >= MaxGuestRefines, nil
}

// IncrementRefineUsage - bump the guest counter with a rolling 24h TTL
func (s *Service) IncrementRefineUsage(ctx context.Context, sessionID string) (*RefineUsage, error) {
	if s.redis == nil {
		return &RefineUsage{SessionID: sessionID, UsedCount: 1}, nil
	}

	usage, _, err := s.CheckRefineQuota(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	usage.UsedCount++
	usage.LastUsedAt = time.Now()
	if usage.FirstUsedAt.IsZero() {
		usage.FirstUsedAt = time.Now()
	}

	data, err := json.Marshal(usage)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(RefineLimitTTL) * time.Hour
	if err := s.redis.Set(ctx, refineUsageKey(sessionID), data, ttl).Err(); err != nil {
		log.Printf("⚠️ [PromptRefine] Failed to save usage record: %v", err)
		return nil, err
	}

	log.Printf("📊 [PromptRefine] Guest usage updated: session=%s, count=%d/%d",
		sessionID, usage.UsedCount, MaxGuestRefines)

	return usage, nil
}

func refineUsageKey(sessionID string) string {
	return fmt.Sprintf("refine:usage:%s", sessionID)
}

// extractText - first text part across candidates
func extractText(result *genai.GenerateContentResponse) string {
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return strings.TrimSpace(part.Text)
			}
		}
	}
	return ""
}

// buildRefinePrompt - instruction wrapper for prompt refinement
func buildRefinePrompt(userPrompt string) string {
	return `[3D ASSET PROMPT REFINEMENT]
You are an expert prompt writer for a text-to-3D generation pipeline.

INSTRUCTIONS:
- Rewrite the user's prompt into a single, vivid description of ONE object
- The description feeds an image generator whose output becomes a 3D model
- Describe shape, materials, and surface details that read well from all angles
- Keep the subject centered, isolated, and free of background scenery
- Do not add text, watermarks, or multiple objects

OUTPUT:
- Return ONLY the refined prompt text, no explanations or quotes

USER PROMPT:
` + userPrompt
}

// Helper functions
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func floatPtr(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
