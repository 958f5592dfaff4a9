package credit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/supabase-community/supabase-go"
	"mpx-generator-server/modules/common/config"
)

type Client struct {
	supabase *supabase.Client
}

// NewClient - create the credit client
func NewClient() *Client {
	cfg := config.GetConfig()

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil
	}

	return &Client{
		supabase: supabaseClient,
	}
}

// DeductCredits - deduct credits for a finished model run and record the transaction
func (c *Client) DeductCredits(ctx context.Context, userID string, jobID string, assetID int64) error {
	cfg := config.GetConfig()
	totalCredits := cfg.ModelPerPrice

	log.Printf("💰 Deducting credits: User=%s, Job=%s, Total=%d credits", userID, jobID, totalCredits)

	// 1. Fetch current balance
	var members []struct {
		MemberCredit int `json:"member_credit"`
	}

	data, _, err := c.supabase.From("mpx_member").
		Select("member_credit", "", false).
		Eq("member_id", userID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to fetch user credits: %w", err)
	}

	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("failed to parse member data: %w", err)
	}

	if len(members) == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}

	currentCredits := members[0].MemberCredit
	newBalance := currentCredits - totalCredits

	log.Printf("💰 Credit balance: %d → %d (-%d)", currentCredits, newBalance, totalCredits)

	// 2. Deduct
	_, _, err = c.supabase.From("mpx_member").
		Update(map[string]interface{}{
			"member_credit": newBalance,
		}, "", "").
		Eq("member_id", userID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to deduct credits: %w", err)
	}

	// 3. Record the transaction
	transactionData := map[string]interface{}{
		"user_id":          userID,
		"transaction_type": "DEDUCT",
		"amount":           -totalCredits,
		"balance_after":    newBalance,
		"description":      "Generated 3D Model",
		"asset_idx":        assetID,
		"job_idx":          jobID,
	}

	_, _, err = c.supabase.From("mpx_credits").
		Insert(transactionData, false, "", "", "").
		Execute()

	if err != nil {
		log.Printf("⚠️  Failed to record transaction for job %s: %v", jobID, err)
	}

	log.Printf("✅ Credits deducted successfully: %d credits from user %s", totalCredits, userID)
	return nil
}
