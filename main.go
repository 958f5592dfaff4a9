package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"mpx-generator-server/modules/common/config"
	"mpx-generator-server/modules/common/database"
	"mpx-generator-server/modules/common/mpx"
	redisutil "mpx-generator-server/modules/common/redis"
	"mpx-generator-server/modules/common/storage"
	"mpx-generator-server/modules/common/utils"

	generatemodel "mpx-generator-server/modules/generate-model"
	promptrefine "mpx-generator-server/modules/prompt-refine"
	"mpx-generator-server/modules/worker"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Dev mode - allow all origins
		// Tighten to specific domains in production
		return true
	},
}

// Connected watcher
type Client struct {
	conn    *websocket.Conn
	watchID string
	userID  string
	send    chan []byte
}

// WatchGroup - watchers following one run id ("*" follows every run)
type WatchGroup struct {
	id           string
	clients      map[string]*Client
	mutex        sync.RWMutex
	createdAt    time.Time
	lastActivity time.Time
}

// WatchManager - watch groups plus server metrics
type WatchManager struct {
	groups  map[string]*WatchGroup
	mutex   sync.RWMutex
	metrics *ServerMetrics

	// last published state, for transition counting
	prevRunID  string
	prevActive bool
}

// ServerMetrics - run and connection counters
type ServerMetrics struct {
	TotalRuns        int       `json:"totalRuns"`
	CompletedRuns    int       `json:"completedRuns"`
	FailedRuns       int       `json:"failedRuns"`
	CancelledRuns    int       `json:"cancelledRuns"`
	TotalConnections int       `json:"totalConnections"`
	StartTime        time.Time `json:"startTime"`
	mutex            sync.RWMutex
}

var watchManager = &WatchManager{
	groups: make(map[string]*WatchGroup),
	metrics: &ServerMetrics{
		StartTime: time.Now(),
	},
}

// WatchMessage - websocket frame
type WatchMessage struct {
	Type      string                  `json:"type"`
	RunID     string                  `json:"runId,omitempty"`
	UserID    string                  `json:"userId,omitempty"`
	Run       *generatemodel.Snapshot `json:"run,omitempty"`
	Timestamp time.Time               `json:"timestamp,omitempty"`
}

// getOrCreateGroup - watch group lookup, creating on first watcher
func (wm *WatchManager) getOrCreateGroup(watchID string) *WatchGroup {
	wm.mutex.Lock()
	defer wm.mutex.Unlock()

	group, exists := wm.groups[watchID]
	if !exists {
		now := time.Now()
		group = &WatchGroup{
			id:           watchID,
			clients:      make(map[string]*Client),
			createdAt:    now,
			lastActivity: now,
		}
		wm.groups[watchID] = group
		log.Printf("✅ Created watch group: %s (Groups: %d)", watchID, len(wm.groups))
	}

	group.lastActivity = time.Now()
	return group
}

// PublishSnapshot - status listener for the workflow controller. Counts run
// transitions and fans the snapshot out to the run's watchers and to "*".
func (wm *WatchManager) PublishSnapshot(snap generatemodel.Snapshot) {
	wm.countTransition(snap)

	msg := WatchMessage{
		Type:      "status_update",
		RunID:     snap.RunID,
		Run:       &snap,
		Timestamp: time.Now(),
	}

	wm.mutex.RLock()
	runGroup := wm.groups[snap.RunID]
	allGroup := wm.groups["*"]
	wm.mutex.RUnlock()

	if runGroup != nil {
		runGroup.broadcast(msg)
	}
	if allGroup != nil {
		allGroup.broadcast(msg)
	}
}

// countTransition - derive run counters from active-flag edges
func (wm *WatchManager) countTransition(snap generatemodel.Snapshot) {
	wm.mutex.Lock()
	started := snap.Active && (!wm.prevActive || wm.prevRunID != snap.RunID)
	ended := !snap.Active && wm.prevActive && wm.prevRunID == snap.RunID
	wm.prevRunID = snap.RunID
	wm.prevActive = snap.Active
	wm.mutex.Unlock()

	if !started && !ended {
		return
	}

	wm.metrics.mutex.Lock()
	defer wm.metrics.mutex.Unlock()
	if started {
		wm.metrics.TotalRuns++
		return
	}
	switch {
	case snap.Cancelled:
		wm.metrics.CancelledRuns++
	case snap.ErrorText != "":
		wm.metrics.FailedRuns++
	default:
		wm.metrics.CompletedRuns++
	}
}

// addClient - register a watcher and announce it to the group
func (g *WatchGroup) addClient(client *Client) {
	g.mutex.Lock()
	g.clients[client.userID] = client
	g.lastActivity = time.Now()
	clientCount := len(g.clients)
	g.mutex.Unlock()

	watchManager.metrics.mutex.Lock()
	watchManager.metrics.TotalConnections++
	watchManager.metrics.mutex.Unlock()

	log.Printf("👤 Watcher %s joined group %s (Watchers: %d)", client.userID, g.id, clientCount)

	g.broadcast(WatchMessage{
		Type:      "watcher_joined",
		RunID:     g.id,
		UserID:    client.userID,
		Timestamp: time.Now(),
	})
}

// removeClient - drop a watcher from the group
func (g *WatchGroup) removeClient(userID string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if client, exists := g.clients[userID]; exists {
		close(client.send)
		delete(g.clients, userID)
		g.lastActivity = time.Now()

		log.Printf("👋 Watcher %s left group %s (Remaining: %d)", userID, g.id, len(g.clients))

		if len(g.clients) == 0 {
			log.Printf("🗑️  Watch group %s is now empty, will be cleaned up", g.id)
		}
	}
}

// broadcast - send a frame to every watcher in the group. Watchers with a
// full send buffer are dropped.
func (g *WatchGroup) broadcast(message WatchMessage) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	for userID, client := range g.clients {
		select {
		case client.send <- messageBytes:
		default:
			close(client.send)
			delete(g.clients, userID)
		}
	}
}

// cleanupEmptyGroups - drop groups with no watchers
func (wm *WatchManager) cleanupEmptyGroups() {
	wm.mutex.Lock()
	defer wm.mutex.Unlock()

	cleaned := 0
	for watchID, group := range wm.groups {
		group.mutex.RLock()
		isEmpty := len(group.clients) == 0
		group.mutex.RUnlock()

		if isEmpty {
			delete(wm.groups, watchID)
			cleaned++
			log.Printf("🧹 Cleaned up empty watch group: %s", watchID)
		}
	}

	if cleaned > 0 {
		log.Printf("🗑️  Cleaned up %d empty watch groups (Remaining: %d)", cleaned, len(wm.groups))
	}
}

// cleanupExpiredGroups - drop stale groups and disconnect their watchers
func (wm *WatchManager) cleanupExpiredGroups() {
	wm.mutex.Lock()
	defer wm.mutex.Unlock()

	now := time.Now()
	expiredThreshold := 24 * time.Hour
	inactiveThreshold := 2 * time.Hour

	cleaned := 0
	for watchID, group := range wm.groups {
		group.mutex.RLock()
		isExpired := now.Sub(group.createdAt) > expiredThreshold
		isInactive := now.Sub(group.lastActivity) > inactiveThreshold && len(group.clients) == 0
		group.mutex.RUnlock()

		if isExpired || isInactive {
			group.mutex.Lock()
			for userID, client := range group.clients {
				close(client.send)
				log.Printf("🔌 Disconnecting watcher %s from expired group %s", userID, watchID)
			}
			group.mutex.Unlock()

			delete(wm.groups, watchID)
			cleaned++

			reason := "expired"
			if isInactive {
				reason = "inactive"
			}
			log.Printf("⏰ Cleaned up %s watch group: %s (Age: %v)", reason, watchID, now.Sub(group.createdAt))
		}
	}

	if cleaned > 0 {
		log.Printf("🧼 Cleaned up %d expired/inactive watch groups (Remaining: %d)", cleaned, len(wm.groups))
	}
}

// startCleanupRoutine - periodic group cleanup
func (wm *WatchManager) startCleanupRoutine() {
	// Empty groups every 5 minutes
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			wm.cleanupEmptyGroups()
		}
	}()

	// Expired groups every 30 minutes
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			wm.cleanupExpiredGroups()
		}
	}()

	log.Printf("🔄 Started watch group cleanup routines (Empty: 5min, Expired: 30min)")
}

// makeWatchHandler - websocket endpoint bound to the workflow controller
func makeWatchHandler(ctrl *generatemodel.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		// run is the run/job id to follow ("*" follows everything)
		watchID := r.URL.Query().Get("run")
		userID := r.URL.Query().Get("user")

		if watchID == "" || userID == "" {
			log.Printf("Missing run or user parameter")
			conn.Close()
			return
		}

		client := &Client{
			conn:    conn,
			watchID: watchID,
			userID:  userID,
			send:    make(chan []byte, 256),
		}

		log.Printf("🔍 New watcher connection - Run: %s, User: %s", watchID, userID)

		group := watchManager.getOrCreateGroup(watchID)
		group.addClient(client)

		// Late joiners get the current state right away
		client.sendSnapshot(ctrl.Status())

		go client.writePump()
		go client.readPump(group, ctrl)
	}
}

// sendSnapshot - direct frame to one watcher
func (c *Client) sendSnapshot(snap generatemodel.Snapshot) {
	msg := WatchMessage{
		Type:      "status_update",
		RunID:     snap.RunID,
		Run:       &snap,
		Timestamp: time.Now(),
	}
	messageBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- messageBytes:
	default:
	}
}

// readPump - watchers mostly listen; request_status re-sends the current
// snapshot to the requester
func (c *Client) readPump(group *WatchGroup, ctrl *generatemodel.Controller) {
	defer func() {
		group.removeClient(c.userID)
		c.conn.Close()
	}()

	for {
		var message WatchMessage
		err := c.conn.ReadJSON(&message)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch message.Type {
		case "request_status":
			c.sendSnapshot(ctrl.Status())

		case "ping":
			// Keepalive only, no reply needed

		default:
			// Watchers have no other say in the run
		}
	}
}

// writePump - push frames from the send buffer to the socket
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// CORS middleware
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Health check endpoint
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "mpx-generator-server",
	})
}

// Watch group info endpoint
func getWatchInfo(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	watchID := vars["runId"]

	watchManager.mutex.RLock()
	group, exists := watchManager.groups[watchID]
	watchManager.mutex.RUnlock()

	if !exists {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Watch group not found",
		})
		return
	}

	group.mutex.RLock()
	clientCount := len(group.clients)
	clientIds := make([]string, 0, len(group.clients))
	for userID := range group.clients {
		clientIds = append(clientIds, userID)
	}
	group.mutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runId":        watchID,
		"watcherCount": clientCount,
		"watchers":     clientIds,
		"createdAt":    group.createdAt,
		"lastActivity": group.lastActivity,
		"age":          time.Since(group.createdAt).String(),
		"inactive":     time.Since(group.lastActivity).String(),
	})
}

// Server metrics endpoint
func makeMetricsHandler(ctrl *generatemodel.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		watchManager.metrics.mutex.RLock()
		metrics := *watchManager.metrics
		watchManager.metrics.mutex.RUnlock()

		uptime := time.Since(metrics.StartTime)

		watchManager.mutex.RLock()
		groupDetails := make([]map[string]interface{}, 0, len(watchManager.groups))
		totalWatchers := 0

		for watchID, group := range watchManager.groups {
			group.mutex.RLock()
			clientCount := len(group.clients)
			totalWatchers += clientCount

			groupDetails = append(groupDetails, map[string]interface{}{
				"runId":        watchID,
				"watcherCount": clientCount,
				"createdAt":    group.createdAt,
				"lastActivity": group.lastActivity,
				"age":          time.Since(group.createdAt).String(),
				"inactive":     time.Since(group.lastActivity).String(),
			})
			group.mutex.RUnlock()
		}
		watchManager.mutex.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"server": map[string]interface{}{
				"uptime":           uptime.String(),
				"startTime":        metrics.StartTime,
				"totalRuns":        metrics.TotalRuns,
				"completedRuns":    metrics.CompletedRuns,
				"failedRuns":       metrics.FailedRuns,
				"cancelledRuns":    metrics.CancelledRuns,
				"totalConnections": metrics.TotalConnections,
				"currentWatchers":  totalWatchers,
			},
			"currentRun": ctrl.Status(),
			"groups":     groupDetails,
		})
	}
}

// Force cleanup of all watch groups (admin)
func forceCleanupGroups(w http.ResponseWriter, r *http.Request) {
	watchManager.cleanupEmptyGroups()
	watchManager.cleanupExpiredGroups()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "Cleanup completed",
	})
}

func main() {
	// Load environment config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Shared collaborators
	store := storage.NewClient()
	db := database.NewClient()
	if db == nil {
		log.Println("⚠️ Database client unavailable - ledger updates disabled")
	}

	mpxClient := mpx.NewClient(cfg.MPXAPIBaseURL, cfg.MPXBearerToken)
	var apiClient generatemodel.APIClient
	if mpxClient != nil {
		apiClient = mpxClient
	}

	rdb := redisutil.Connect(cfg)
	refineService := promptrefine.NewService(rdb)
	var refiner generatemodel.Refiner
	if refineService != nil {
		refiner = refineService
	}

	importer := generatemodel.NewStorageImporter(db, store)

	// The one controller every surface shares
	ctrl := generatemodel.NewController(apiClient, importer, refiner, store, nil)
	ctrl.SetStatusListener(watchManager.PublishSnapshot)

	// Preview archiving: WebP convert, upload, attach to the job row.
	// Failures only log; the run itself never depends on the preview.
	ctrl.SetPreviewHook(func(pngData []byte, meta generatemodel.ImportMeta) {
		ctx, cancelFn := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancelFn()

		filePath, _, err := store.UploadPreviewToStorage(ctx, pngData, meta.UserID, utils.ConvertPNGToWebP)
		if err != nil {
			log.Printf("⚠️ Preview archive failed: %v", err)
			return
		}
		if db != nil && meta.JobID != "" {
			if err := db.UpdateJobPreview(ctx, meta.JobID, store.PublicURL(filePath)); err != nil {
				log.Printf("⚠️ Failed to attach preview to job %s: %v", meta.JobID, err)
			}
		}
	})

	// Cleanup routines
	watchManager.startCleanupRoutine()

	// Redis queue worker (background)
	go worker.StartWorker(ctrl)

	// Router setup
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", makeWatchHandler(ctrl))
	r.HandleFunc("/watch/{runId}", getWatchInfo).Methods("GET")
	r.HandleFunc("/metrics", makeMetricsHandler(ctrl)).Methods("GET")
	r.HandleFunc("/admin/cleanup", forceCleanupGroups).Methods("POST")

	// Module routes
	generatemodel.NewHandler(ctrl).RegisterRoutes(r)

	if h := promptrefine.NewHandler(refineService); h != nil {
		h.RegisterRoutes(r)
	}
	if h := worker.NewEnqueueHandler(); h != nil {
		h.RegisterRoutes(r)
	}
	if h := worker.NewCancelHandler(); h != nil {
		h.RegisterRoutes(r)
	}
	if h := worker.NewStatusHandler(); h != nil {
		h.RegisterRoutes(r)
	}

	port := cfg.Port

	log.Printf("🚀 MPX Generator Server starting on port %s", port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws", port)
	log.Printf("❤️  Health check: http://localhost:%s/health", port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", port)
	log.Printf("🧹 Admin cleanup: http://localhost:%s/admin/cleanup", port)

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
