package org

import (
	"encoding/json"
	"log"

	"github.com/supabase-community/supabase-go"
)

// Workspace status values
const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

// IsWorkspaceActive - check whether a workspace is in the active state.
// A nil or empty id returns false.
func IsWorkspaceActive(supabase *supabase.Client, workspaceID *string) bool {
	if workspaceID == nil || *workspaceID == "" {
		return false
	}

	var workspaces []struct {
		WorkspaceStatus string `json:"workspace_status"`
	}

	data, _, err := supabase.From("mpx_workspace").
		Select("workspace_status", "", false).
		Eq("workspace_id", *workspaceID).
		Execute()

	if err != nil {
		log.Printf("⚠️ [Org] Failed to check workspace_status for %s: %v", *workspaceID, err)
		return false
	}

	if err := json.Unmarshal(data, &workspaces); err != nil {
		log.Printf("⚠️ [Org] Failed to parse workspace data for %s: %v", *workspaceID, err)
		return false
	}

	if len(workspaces) == 0 {
		log.Printf("⚠️ [Org] Workspace not found: %s", *workspaceID)
		return false
	}

	if workspaces[0].WorkspaceStatus == StatusActive {
		log.Printf("✅ [Org] Workspace %s is active", *workspaceID)
		return true
	}

	log.Printf("⚠️ [Org] Workspace %s status is '%s' (not active)", *workspaceID, workspaces[0].WorkspaceStatus)
	return false
}
