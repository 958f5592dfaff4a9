package generatemodel

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"mpx-generator-server/modules/common/mpx"
	"mpx-generator-server/modules/common/storage"
)

// Controller drives a generation run through its phases: it issues the first
// remote call synchronously, then hands off to the poller goroutine that
// advances the run tick by tick. One controller serves the whole process;
// its start entry point rejects a second start while a run is active.
type Controller struct {
	status   *Status
	client   APIClient
	importer Importer
	refiner  Refiner
	store    *storage.Client
	cfg      *Config

	onPreview func(pngData []byte, meta ImportMeta)

	mu         sync.Mutex
	params     RunParams
	downloadCh chan downloadResult
	done       chan struct{}
	endOnce    *sync.Once
	pollCount  int
	tmpDir     string
}

// NewController - build the workflow controller. The importer and refiner
// may be nil; a nil importer fails runs at the import step, a nil refiner
// disables prompt refinement.
func NewController(client APIClient, importer Importer, refiner Refiner, store *storage.Client, cfg *Config) *Controller {
	if cfg == nil {
		cfg = LoadWorkflowConfig()
	}
	if store == nil {
		store = storage.NewClient()
	}

	return &Controller{
		status:   NewStatus(),
		client:   client,
		importer: importer,
		refiner:  refiner,
		store:    store,
		cfg:      cfg,
		tmpDir:   os.TempDir(),
	}
}

// SetStatusListener - fired with a fresh snapshot after every status change.
// Wire this once at startup, before any run.
func (c *Controller) SetStatusListener(fn func(Snapshot)) {
	c.status.SetNotify(fn)
}

// SetPreviewHook - background archive hook for the generated preview image.
// Wire this once at startup, before any run.
func (c *Controller) SetPreviewHook(fn func(pngData []byte, meta ImportMeta)) {
	c.onPreview = fn
}

// Status - snapshot of the current (or last) run
func (c *Controller) Status() Snapshot {
	return c.status.Snapshot()
}

// Done - closed when the current run reaches a terminal state
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Start - validate, reset the status record, issue the first remote call for
// the chosen path and hand off to the poller. Returns the run id immediately
// on success; the run continues asynchronously.
func (c *Controller) Start(ctx context.Context, params RunParams) (string, error) {
	if c.client == nil {
		return "", ErrNoClient
	}
	if err := validateParams(params); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.status.Active() {
		c.mu.Unlock()
		return "", ErrRunActive
	}

	runID := params.JobID
	if runID == "" {
		runID = uuid.New().String()
	}
	method := MethodText
	if params.SourceIsImage {
		method = MethodImage
	}

	c.params = params
	c.downloadCh = make(chan downloadResult, 1)
	c.done = make(chan struct{})
	c.endOnce = new(sync.Once)
	c.pollCount = 0
	c.status.beginRun(runID, method)
	c.mu.Unlock()

	log.Printf("🚀 [GenerateModel] Starting %s run: %s", method, runID)

	var err error
	if params.SourceIsImage {
		err = c.startImageRun(ctx, params)
	} else {
		err = c.startTextRun(ctx, params)
	}
	if err != nil {
		c.failRun(err.Error())
		return "", err
	}

	// The poller owns the run from here; bgCtx outlives the caller
	bgCtx := context.Background()
	go c.pollLoop(bgCtx, runID)

	return runID, nil
}

// validateParams - configuration errors are rejected before any remote call
func validateParams(params RunParams) error {
	if params.SourceIsImage {
		if params.ImagePath == "" {
			return fmt.Errorf("image path is required for image generation")
		}
		if _, err := os.Stat(params.ImagePath); err != nil {
			return fmt.Errorf("image file not found: %s", params.ImagePath)
		}
		return nil
	}
	if params.Prompt == "" {
		return fmt.Errorf("prompt is required for text generation")
	}
	return nil
}

// startTextRun - text path: refine the prompt when enabled, then create the
// text-to-image job
func (c *Controller) startTextRun(ctx context.Context, params RunParams) error {
	prompt := params.Prompt
	if params.RefinePrompt && c.refiner != nil {
		if refined, err := c.refiner.RefinePrompt(ctx, prompt); err != nil {
			log.Printf("⚠️ [GenerateModel] Prompt refinement failed, using raw prompt: %v", err)
		} else if refined != "" {
			prompt = refined
		}
	}

	c.status.setProgress(10, "Starting image generation...")

	requestID, err := c.client.CreateTextToImageJob(ctx, prompt, 1, params.NumSteps, mpx.LoraGame)
	if err != nil {
		return fmt.Errorf("failed to start image generation: %v", err)
	}

	c.status.setImageJob(requestID)
	c.status.advance(PhaseImage, 15, textGeneratingImage)
	return nil
}

// startImageRun - image path: upload the source image as an asset and create
// the image-to-3D job directly
func (c *Controller) startImageRun(ctx context.Context, params RunParams) error {
	c.status.setProgress(10, "Preparing to upload image...")

	data, err := os.ReadFile(params.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to read image file: %v", err)
	}

	sourceName := params.ImageName
	if sourceName == "" {
		sourceName = filepath.Base(params.ImagePath)
	}
	assetName := SanitizeAssetName(sourceName)
	mimeType := DetectMimeType(assetName)

	c.status.setProgress(15, "Creating asset for image upload...")

	asset, err := c.client.CreateUploadAsset(ctx, "Image for 3D model generation", assetName, mimeType)
	if err != nil {
		return fmt.Errorf("failed to create upload asset: %v", err)
	}
	c.status.setAssetJob(asset.RequestID)

	c.status.setProgress(25, "Uploading image...")

	if err := c.client.UploadAssetBytes(ctx, asset.AssetURL, mimeType, data); err != nil {
		return fmt.Errorf("failed to upload image: %v", err)
	}

	c.status.setProgress(40, "Starting 3D model generation...")

	modelID, err := c.client.CreateImageTo3DJob(ctx, asset.RequestID, params.Seed, params.TextureSize)
	if err != nil {
		return fmt.Errorf("failed to start 3D model generation: %v", err)
	}

	c.status.setModelJob(modelID)
	c.status.advance(PhaseModel, 45, textGeneratingModelImage)
	return nil
}

// Cancel - cooperative cancellation. Sets the terminal cancelled state
// directly; the poller observes it on its next tick and shuts the run down
// without another remote call. Outstanding download workers run to
// completion and their results are discarded.
func (c *Controller) Cancel() {
	if !c.status.Active() {
		return
	}
	log.Printf("🛑 [GenerateModel] Cancelling run: %s", c.status.RunID())
	c.status.cancelRun()
}

// failRun - the single terminal failure path
func (c *Controller) failRun(msg string) {
	log.Printf("❌ [GenerateModel] Run failed: %s", msg)
	c.status.fail(msg)
	c.cleanupTempFiles()
	c.endRun()
}

// endRun - close the done channel exactly once per run
func (c *Controller) endRun() {
	c.mu.Lock()
	once := c.endOnce
	done := c.done
	c.mu.Unlock()
	if once == nil {
		return
	}
	once.Do(func() { close(done) })
}

// cleanupTempFiles - remove run artifacts from the temp directory
func (c *Controller) cleanupTempFiles() {
	for _, name := range []string{tempImageName, tempModelName} {
		path := filepath.Join(c.tmpDir, name)
		if err := os.Remove(path); err == nil {
			log.Printf("🧹 [GenerateModel] Removed temp file: %s", path)
		}
	}
}

// startWorker - run fn on its own goroutine, tracked in the status record
func (c *Controller) startWorker(fn func()) {
	c.status.registerWorker()
	go func() {
		defer c.status.unregisterWorker()
		fn()
	}()
}
