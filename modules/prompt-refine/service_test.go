package promptrefine

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func setupTestService(t *testing.T) (*miniredis.Miniredis, *Service) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, &Service{
		apiKeys: []string{"test-key"},
		model:   "gemini-2.5-flash",
		redis:   client,
	}
}

func TestCheckRefineQuotaFreshSession(t *testing.T) {
	_, s := setupTestService(t)

	usage, limitReached, err := s.CheckRefineQuota(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.False(t, limitReached)
	assert.Equal(t, 0, usage.UsedCount)
	assert.Equal(t, "sess-1", usage.SessionID)
}

func TestIncrementRefineUsage(t *testing.T) {
	mr, s := setupTestService(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		usage, err := s.IncrementRefineUsage(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, i, usage.UsedCount)
	}

	usage, limitReached, err := s.CheckRefineQuota(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, limitReached)
	assert.Equal(t, 3, usage.UsedCount)

	// The record expires on its own
	assert.Greater(t, mr.TTL("refine:usage:sess-1").Hours(), 0.0)
}

func TestRefineQuotaLimit(t *testing.T) {
	_, s := setupTestService(t)
	ctx := context.Background()

	for i := 0; i < MaxGuestRefines; i++ {
		_, err := s.IncrementRefineUsage(ctx, "sess-1")
		require.NoError(t, err)
	}

	usage, limitReached, err := s.CheckRefineQuota(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, limitReached)
	assert.Equal(t, MaxGuestRefines, usage.UsedCount)

	// Sessions are isolated
	_, otherLimitReached, err := s.CheckRefineQuota(ctx, "sess-2")
	require.NoError(t, err)
	assert.False(t, otherLimitReached)
}

func TestRefineQuotaWithoutRedis(t *testing.T) {
	s := &Service{apiKeys: []string{"test-key"}, model: "gemini-2.5-flash"}
	ctx := context.Background()

	_, limitReached, err := s.CheckRefineQuota(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, limitReached)

	usage, err := s.IncrementRefineUsage(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.UsedCount)
}

func TestBuildRefinePrompt(t *testing.T) {
	prompt := buildRefinePrompt("a red dragon")

	assert.True(t, strings.HasPrefix(prompt, "[3D ASSET PROMPT REFINEMENT]"))
	assert.Contains(t, prompt, "USER PROMPT:\na red dragon")
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: ""},
				{Text: "  a refined dragon prompt  "},
			}}},
		},
	}
	assert.Equal(t, "a refined dragon prompt", extractText(resp))

	assert.Equal(t, "", extractText(&genai.GenerateContentResponse{}))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
}
