package daemon

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"relaycore.dev/agentcore/common/id"
	"relaycore.dev/agentcore/internal/model"
	"relaycore.dev/agentcore/internal/store"
)

const maxTaskHistory = 50

// createTaskRequest is the POST /api/v1/tasks body.
type createTaskRequest struct {
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	MaxIterations    int     `json:"max_iterations"`
	QualityThreshold float64 `json:"quality_threshold"`
}

func (d *Daemon) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}

	task := model.TaskInput{
		ID:          id.New(),
		Description: req.Description,
		Category:    req.Category,
		CreatedAt:   time.Now(),
	}

	if !d.Submit(task) {
		c.JSON(http.StatusConflict, gin.H{"error": "task already active"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"task_id": task.ID,
		"status":  "queued",
		"message": "task queued",
	})
}

func (d *Daemon) handleListTasks(c *gin.Context) {
	if d.Tasks == nil {
		c.JSON(http.StatusOK, gin.H{"tasks": []model.TaskInput{}})
		return
	}
	tasks, err := d.Tasks.List(c.Request.Context(), maxTaskHistory)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (d *Daemon) handleGetTask(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	if d.Tasks == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	task, err := d.Tasks.Get(c.Request.Context(), taskID)
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	_, active := d.ActiveTask()
	c.JSON(http.StatusOK, gin.H{"task": task, "active": active && d.Queue.IsActive(taskID)})
}

func (d *Daemon) handleCancelTask(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}
	if !d.Cancel(taskID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": taskID, "status": "cancelling"})
}

func (d *Daemon) handleStatus(c *gin.Context) {
	if c.GetHeader("Accept") == "text/event-stream" {
		d.handleStatusStream(c)
		return
	}

	activeTaskID, active := d.ActiveTask()
	body := gin.H{
		"version":      d.Version,
		"uptime_secs":  int64(d.Uptime().Seconds()),
		"tasks_today":  d.DailyCount(),
		"active":       active,
	}
	if active {
		body["active_task_id"] = activeTaskID
	}
	c.JSON(http.StatusOK, body)
}

// handleStatusStream tails the in-process progress fan-out for the
// currently active task, grounded on the teacher's
// internal/http/handler/agent_status.go Redis-XREAD SSE handler, adapted
// to subscribe to Broadcaster instead of reading a remote stream.
func (d *Daemon) handleStatusStream(c *gin.Context) {
	taskID, active := d.ActiveTask()
	if !active {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	ch, unsubscribe := d.Broadcaster.Subscribe(taskID)
	defer unsubscribe()

	sseWrite(w, "ping", "ready")
	flusher.Flush()

	ctx := c.Request.Context()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			sseWrite(w, "status", ev)
			flusher.Flush()
		case <-ticker.C:
			sseWrite(w, "ping", time.Now().UTC().Format(time.RFC3339Nano))
			flusher.Flush()
		}
	}
}

func (d *Daemon) handleCost(c *gin.Context) {
	if d.Cost == nil {
		c.JSON(http.StatusOK, gin.H{"report": nil})
		return
	}
	report := d.Cost.Report()

	var tasks []model.TaskInput
	if d.Tasks != nil {
		if t, err := d.Tasks.List(c.Request.Context(), 10); err == nil {
			tasks = t
		}
	}

	c.JSON(http.StatusOK, gin.H{"report": report, "recent_tasks": tasks})
}

func (d *Daemon) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": d.Version})
}

func parseTaskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return id, true
}
