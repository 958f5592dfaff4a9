package worker

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"mpx-generator-server/modules/common/config"
	"mpx-generator-server/modules/common/credit"
	"mpx-generator-server/modules/common/database"
	"mpx-generator-server/modules/common/model"
	redisClient "mpx-generator-server/modules/common/redis"

	generatemodel "mpx-generator-server/modules/generate-model"
)

// StartWorker - Redis queue worker. Pops job ids from jobs:queue and runs
// them through the shared workflow controller, one at a time.
func StartWorker(ctrl *generatemodel.Controller) {
	log.Println("🔄 Redis Queue Worker starting...")

	cfg := config.GetConfig()

	rdb := redisClient.Connect(cfg)
	if rdb == nil {
		log.Fatal("❌ Failed to connect to Redis")
		return
	}
	log.Println("✅ Redis connected successfully")

	dbClient := database.NewClient()
	if dbClient == nil {
		log.Fatal("❌ Failed to initialize Database client")
		return
	}

	credits := credit.NewClient()
	if credits == nil {
		log.Println("⚠️ Credit client unavailable - jobs will complete without deduction")
	}

	log.Println("👀 Watching queue: jobs:queue")

	ctx := context.Background()

	for {
		// BRPOP blocks until a job id arrives
		result, err := rdb.BRPop(ctx, 0, "jobs:queue").Result()
		if err != nil {
			log.Printf("❌ Redis BRPOP error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		// result[0] is "jobs:queue", result[1] is the job id
		jobID := result[1]
		log.Printf("🎯 Received new job: %s", jobID)

		// Synchronous on purpose: the controller has a single run slot, so
		// draining jobs in order beats a pile of goroutines fighting for it
		processJob(ctx, rdb, dbClient, credits, ctrl, jobID)
	}
}

// processJob - fetch the ledger row and route by job type
func processJob(ctx context.Context, rdb *redis.Client, dbClient *database.Client, credits *credit.Client, ctrl *generatemodel.Controller, jobID string) {
	log.Printf("🚀 Processing job: %s", jobID)

	job, err := dbClient.FetchJob(jobID)
	if err != nil {
		log.Printf("❌ Failed to fetch job %s: %v", jobID, err)
		return
	}

	log.Printf("📦 Job Data:")
	log.Printf("   JobID: %s", job.JobID)
	log.Printf("   JobType: %s", job.JobType)
	log.Printf("   Method: %s", job.GenerationMethod)
	log.Printf("   Status: %s", job.JobStatus)

	jobType := job.JobType
	if jobType == "" {
		jobType = model.JobTypeGenerateModel
	}

	switch jobType {
	case model.JobTypeGenerateModel:
		log.Printf("🧊 Routing to GenerateModel module")
		generatemodel.ProcessJob(ctx, rdb, dbClient, credits, ctrl, job)

	default:
		log.Printf("⚠️  Unknown job_type: %s", jobType)
		dbClient.UpdateJobFailed(ctx, jobID, "Unknown job type: "+jobType)
	}

	log.Printf("✅ Job %s processing completed", jobID)
}
