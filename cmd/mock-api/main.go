// Package main implements a mock board API server for development and
// e2e testing. It serves the projects/tasks REST surface from an
// in-memory store and, when a NATS URL is given, broadcasts every
// confirmed mutation the way the real backend does. This eliminates the
// need for a real deployment while wiring and testing clients.
//
// Usage:
//
//	mock-api -port 8080 -token dev-token -nats nats://127.0.0.1:4222
//
// With -token set, requests must carry "Authorization: Bearer <token>".
// Without -nats, mutations are served but not broadcast.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/boardsync/boardsync/entity"
	"github.com/boardsync/boardsync/events"
)

type server struct {
	mu       sync.Mutex
	projects []entity.Project
	tasks    []entity.Task

	channel *events.Channel
}

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	token := flag.String("token", "", "Bearer token to require (empty disables auth)")
	natsURL := flag.String("nats", "", "NATS URL to broadcast mutations to (empty disables)")
	flag.Parse()

	s := &server{}

	if *natsURL != "" {
		channel, err := events.Connect(*natsURL, events.WithClientID("mock-api"))
		if err != nil {
			log.Fatalf("connect to NATS: %v", err)
		}
		defer channel.Close()
		s.channel = channel
		log.Printf("Broadcasting mutations to %s", *natsURL)
	}

	router := newRouter(s, *token)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock board API listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func newRouter(s *server, token string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if token != "" {
		router.Use(bearerAuth(token))
	}

	router.GET("/api/projects", s.listProjects)
	router.POST("/api/projects", s.createProject)
	router.PUT("/api/projects/:id", s.updateProject)
	router.DELETE("/api/projects/:id", s.deleteProject)
	router.GET("/api/projects/:id/tasks", s.listTasks)
	router.POST("/api/projects/:id/tasks", s.createTask)
	router.PUT("/api/tasks/:id", s.updateTask)
	router.DELETE("/api/tasks/:id", s.deleteTask)
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

func bearerAuth(token string) gin.HandlerFunc {
	want := "Bearer " + token
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != want {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}
		c.Next()
	}
}

func fail(c *gin.Context, status int, format string, args ...any) {
	c.JSON(status, gin.H{"message": fmt.Sprintf(format, args...)})
}

// --- Projects ---

func (s *server) listProjects(c *gin.Context) {
	s.mu.Lock()
	out := append([]entity.Project{}, s.projects...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *server) createProject(c *gin.Context) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		fail(c, http.StatusBadRequest, "project name is required")
		return
	}

	project := entity.Project{
		ID:          uuid.New().String(),
		Name:        body.Name,
		Description: body.Description,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.projects = append([]entity.Project{project}, s.projects...)
	s.mu.Unlock()

	s.publish(func() error { return s.channel.PublishProjectCreated(project) })
	c.JSON(http.StatusCreated, project)
}

func (s *server) updateProject(c *gin.Context) {
	id := c.Param("id")

	var patch entity.ProjectPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		fail(c, http.StatusBadRequest, "project name is required")
		return
	}

	s.mu.Lock()
	idx := -1
	for i, p := range s.projects {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "project not found: %s", id)
		return
	}
	if patch.Name != nil {
		s.projects[idx].Name = *patch.Name
	}
	if patch.Description != nil {
		s.projects[idx].Description = *patch.Description
	}
	project := s.projects[idx]
	s.mu.Unlock()

	s.publish(func() error { return s.channel.PublishProjectUpdated(project) })
	c.JSON(http.StatusOK, project)
}

func (s *server) deleteProject(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	idx := -1
	for i, p := range s.projects {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "project not found: %s", id)
		return
	}
	s.projects = append(s.projects[:idx], s.projects[idx+1:]...)

	// Cascade to the project's tasks.
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.ProjectID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	s.mu.Unlock()

	s.publish(func() error { return s.channel.PublishProjectDeleted(id) })
	c.Status(http.StatusNoContent)
}

// --- Tasks ---

func (s *server) listTasks(c *gin.Context) {
	projectID := c.Param("id")

	s.mu.Lock()
	if !s.projectExistsLocked(projectID) {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "project not found: %s", projectID)
		return
	}
	out := []entity.Task{}
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, out)
}

func (s *server) createTask(c *gin.Context) {
	projectID := c.Param("id")

	var task entity.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(task.Title) == "" {
		fail(c, http.StatusBadRequest, "task title is required")
		return
	}
	if task.Status == "" {
		task.Status = entity.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = entity.DefaultPriority
	}
	task.ID = uuid.New().String()
	task.ProjectID = projectID
	if err := task.Validate(); err != nil {
		fail(c, http.StatusBadRequest, "%s", err)
		return
	}

	s.mu.Lock()
	if !s.projectExistsLocked(projectID) {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "project not found: %s", projectID)
		return
	}
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	s.publish(func() error { return s.channel.PublishTaskCreated(task) })
	c.JSON(http.StatusCreated, task)
}

func (s *server) updateTask(c *gin.Context) {
	id := c.Param("id")

	var patch entity.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		fail(c, http.StatusBadRequest, "task title is required")
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		fail(c, http.StatusBadRequest, "unknown status: %q", *patch.Status)
		return
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		fail(c, http.StatusBadRequest, "unknown priority: %q", *patch.Priority)
		return
	}

	s.mu.Lock()
	idx := -1
	for i, t := range s.tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "task not found: %s", id)
		return
	}
	if patch.Title != nil {
		s.tasks[idx].Title = *patch.Title
	}
	if patch.Status != nil {
		s.tasks[idx].Status = *patch.Status
	}
	if patch.Priority != nil {
		s.tasks[idx].Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		s.tasks[idx].DueDate = patch.DueDate
	}
	task := s.tasks[idx]
	s.mu.Unlock()

	s.publish(func() error { return s.channel.PublishTaskUpdated(task) })
	c.JSON(http.StatusOK, task)
}

func (s *server) deleteTask(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	idx := -1
	for i, t := range s.tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "task not found: %s", id)
		return
	}
	task := s.tasks[idx]
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.mu.Unlock()

	s.publish(func() error { return s.channel.PublishTaskDeleted(task.ID, task.ProjectID) })
	c.Status(http.StatusNoContent)
}

func (s *server) projectExistsLocked(id string) bool {
	for _, p := range s.projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *server) publish(fn func() error) {
	if s.channel == nil {
		return
	}
	if err := fn(); err != nil {
		log.Printf("broadcast failed: %v", err)
	}
}
