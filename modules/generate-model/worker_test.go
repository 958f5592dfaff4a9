package generatemodel

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpx-generator-server/modules/common/model"
)

func TestParamsFromJobText(t *testing.T) {
	job := &model.GenerationJob{
		JobID: "job-1",
		JobInputData: map[string]interface{}{
			"prompt":       "a red dragon",
			"numSteps":     float64(2),
			"textureSize":  float64(2048),
			"seed":         float64(42),
			"refinePrompt": true,
			"userId":       "user-1",
		},
	}

	params, tempImage, err := paramsFromJob(job)
	require.NoError(t, err)
	assert.Empty(t, tempImage)

	assert.Equal(t, "job-1", params.JobID)
	assert.Equal(t, "a red dragon", params.Prompt)
	assert.False(t, params.SourceIsImage)
	assert.Equal(t, 2, params.NumSteps)
	assert.Equal(t, 2048, params.TextureSize)
	assert.Equal(t, 42, params.Seed)
	assert.True(t, params.RefinePrompt)
	assert.Equal(t, "user-1", params.UserID)
}

func TestParamsFromJobClampsNumbers(t *testing.T) {
	job := &model.GenerationJob{
		JobID: "job-1",
		JobInputData: map[string]interface{}{
			"prompt":      "a red dragon",
			"numSteps":    float64(99),
			"textureSize": float64(100),
			"seed":        float64(0),
		},
	}

	params, _, err := paramsFromJob(job)
	require.NoError(t, err)
	assert.Equal(t, 4, params.NumSteps)
	assert.Equal(t, 512, params.TextureSize)
	assert.Equal(t, 1, params.Seed)
}

func TestParamsFromJobMissingPrompt(t *testing.T) {
	job := &model.GenerationJob{JobID: "job-1", JobInputData: map[string]interface{}{}}

	_, _, err := paramsFromJob(job)
	assert.ErrorContains(t, err, "missing prompt in job input")
}

func TestParamsFromJobUserIDFallsBackToMember(t *testing.T) {
	memberID := "member-7"
	job := &model.GenerationJob{
		JobID:    "job-1",
		MemberID: &memberID,
		JobInputData: map[string]interface{}{
			"prompt": "a red dragon",
		},
	}

	params, _, err := paramsFromJob(job)
	require.NoError(t, err)
	assert.Equal(t, "member-7", params.UserID)
}

func TestParamsFromJobImage(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake"))
	job := &model.GenerationJob{
		JobID:            "job-img",
		GenerationMethod: MethodImage,
		JobInputData: map[string]interface{}{
			"imageBase64": encoded,
			"imageName":   "Source Photo.png",
		},
	}

	params, tempImage, err := paramsFromJob(job)
	require.NoError(t, err)
	require.NotEmpty(t, tempImage)
	defer os.Remove(tempImage)

	assert.True(t, params.SourceIsImage)
	assert.Equal(t, tempImage, params.ImagePath)
	assert.Equal(t, "Source Photo.png", params.ImageName)
	assert.Regexp(t, `mpx_job_job-img\.png$`, tempImage)

	// The staged source holds the decoded bytes
	data, err := os.ReadFile(tempImage)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\nfake"), data)
}

func TestParamsFromJobImageMissingPayload(t *testing.T) {
	job := &model.GenerationJob{
		JobID:            "job-img",
		GenerationMethod: MethodImage,
		JobInputData:     map[string]interface{}{},
	}

	_, _, err := paramsFromJob(job)
	assert.ErrorContains(t, err, "missing imageBase64 in job input")
}

func TestParamsFromJobImageBadPayload(t *testing.T) {
	job := &model.GenerationJob{
		JobID:            "job-img",
		GenerationMethod: MethodImage,
		JobInputData: map[string]interface{}{
			"imageBase64": "!!! not base64 !!!",
		},
	}

	_, _, err := paramsFromJob(job)
	assert.ErrorContains(t, err, "failed to decode base64 image")
}

func TestParamsFromJobMethodFromInputOverridesRow(t *testing.T) {
	// job_input_data wins over the ledger column when both are present
	job := &model.GenerationJob{
		JobID:            "job-1",
		GenerationMethod: MethodImage,
		JobInputData: map[string]interface{}{
			"generationMethod": "text",
			"prompt":           "a red dragon",
		},
	}

	params, tempImage, err := paramsFromJob(job)
	require.NoError(t, err)
	assert.Empty(t, tempImage)
	assert.False(t, params.SourceIsImage)
	assert.Equal(t, "a red dragon", params.Prompt)
}
