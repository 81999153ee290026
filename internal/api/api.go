package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"example.com/keycloak-provisioner/internal/model"
	"example.com/keycloak-provisioner/internal/provisioner"
	"example.com/keycloak-provisioner/internal/queue"
	"example.com/keycloak-provisioner/internal/store"
)

type Handler struct {
	store store.Store
	q     queue.Client
	mux   *gin.Engine
}

// NewHandler creates the API handler. q may be nil; if provided, created
// task IDs are published to the queue for the worker.
func NewHandler(s store.Store, q queue.Client) *Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	h := &Handler{store: s, q: q, mux: r}
	h.routes()
	return h
}

// Router returns the underlying engine (gin implements http.Handler).
func (h *Handler) Router() *gin.Engine { return h.mux }

func (h *Handler) routes() {
	h.mux.POST("/tasks", h.createTask)
	h.mux.GET("/tasks", h.listTasks)
	h.mux.GET("/tasks/:id", h.taskByID)
}

// createTask accepts a provisioning job: a project plus the users to onboard.
func (h *Handler) createTask(c *gin.Context) {
	var in struct {
		Project     string   `json:"project"`
		UserNames   []string `json:"user_names"`
		EmailDomain string   `json:"email_domain"`
	}
	if err := c.BindJSON(&in); err != nil {
		c.String(400, "invalid json")
		return
	}
	if in.Project == "" {
		c.String(400, "project required")
		return
	}
	names := normalizeNames(in.UserNames)
	if len(names) == 0 {
		c.String(400, "user_names required")
		return
	}

	payload := map[string]string{"user_names": names}
	if d := provisioner.NormalizeDomain(in.EmailDomain); d != "" {
		payload["email_domain"] = d
	}
	t := &model.Task{Project: in.Project, Payload: payload}
	id, err := h.store.CreateTask(t)
	if err != nil {
		log.Printf("store error: %v", err)
		c.String(500, "create error")
		return
	}
	if h.q != nil {
		if err := h.q.Publish(c.Request.Context(), id); err != nil {
			log.Printf("warning: failed to publish task %s to queue: %v", id, err)
		}
	}
	c.JSON(202, gin.H{"id": id})
}

// normalizeNames joins the request's name list back into the comma-separated
// payload form, dropping blanks.
func normalizeNames(in []string) string {
	names := ""
	for _, n := range in {
		for _, parsed := range provisioner.SplitNames(n) {
			if names != "" {
				names += ","
			}
			names += parsed
		}
	}
	return names
}

func (h *Handler) listTasks(c *gin.Context) {
	list, err := h.store.ListTasks()
	if err != nil {
		log.Printf("store error: %v", err)
		c.String(500, "internal")
		return
	}
	c.JSON(200, list)
}

func (h *Handler) taskByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.String(400, "missing id")
		return
	}
	t, err := h.store.GetTask(id)
	if err != nil {
		if err == store.ErrNotFound {
			c.String(404, "not found")
			return
		}
		log.Printf("store error: %v", err)
		c.String(500, "internal")
		return
	}
	c.JSON(200, t)
}
