// Package api serves the canvas controller over HTTP with gin.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-canvas/internal/app"
	"github.com/celerix-dev/celerix-canvas/internal/engine"
	"github.com/celerix-dev/celerix-canvas/internal/interaction"
	"github.com/celerix-dev/celerix-canvas/internal/sticker"
	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// UserHeader names the acting user for one request, overriding the session user.
const UserHeader = "X-Canvas-User"

type Handler struct {
	App    *app.App
	Bridge http.Handler // mounted at /ws when set
	Logger *slog.Logger
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/boards", h.ListBoards)
		api.POST("/boards", h.CreateBoard)
		api.GET("/boards/:id", h.OpenBoard)
		api.DELETE("/boards/:id", h.DeleteBoard)
		api.PUT("/boards/:id/background", h.SetBackground)
		api.POST("/boards/:id/items", h.AddItem)
		api.DELETE("/boards/:id/items/:item", h.DeleteItem)
		api.POST("/boards/:id/items/:item/layer", h.ChangeLayer)
		api.POST("/open", h.OpenFragment)

		api.POST("/interaction/drag", h.BeginDrag)
		api.POST("/interaction/resize", h.BeginResize)
		api.POST("/interaction/move", h.Move)
		api.POST("/interaction/release", h.Release)
		api.POST("/interaction/cancel", h.Cancel)

		api.GET("/session", h.Session)
		api.POST("/session", h.Login)
		api.DELETE("/session", h.Logout)
		api.PUT("/language", h.SetLanguage)
		api.PUT("/viewport", h.SetViewport)
		api.PUT("/credential", h.SetCredential)
		api.POST("/stickers", h.GenerateSticker)
		api.GET("/i18n/:key", h.Translate)
	}
	if h.Bridge != nil {
		r.GET("/ws", gin.WrapH(h.Bridge))
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// locale picks Accept-Language when sent, else the controller's language.
func (h *Handler) locale(c *gin.Context) string {
	if accept := c.GetHeader("Accept-Language"); accept != "" {
		return h.App.Translator().Match(accept)
	}
	return h.App.Language()
}

func (h *Handler) message(c *gin.Context, key string) string {
	return h.App.Translator().T(h.locale(c), key)
}

func as(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(UserHeader))
}

// fail maps controller errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, err.Error()
	switch {
	case errors.Is(err, app.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrNoUser):
		status, msg = http.StatusUnauthorized, h.message(c, "error.noUser")
	case errors.Is(err, app.ErrNoBoard):
		status, msg = http.StatusConflict, h.message(c, "error.noBoard")
	case errors.Is(err, engine.ErrNotFound):
		status, msg = http.StatusNotFound, h.message(c, "board.notFound")
	case errors.Is(err, sticker.ErrDisabled):
		status, msg = http.StatusServiceUnavailable, h.message(c, "sticker.disabled")
	case errors.Is(err, sticker.ErrGeneration):
		status, msg = http.StatusBadGateway, h.message(c, "sticker.failed")
	case errors.Is(err, app.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.logger().ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func (h *Handler) dispatch(c *gin.Context, msg app.Message) {
	res, err := h.App.Dispatch(c.Request.Context(), msg)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// onBoard answers 409 unless the board in the path is the open one.
func (h *Handler) onBoard(c *gin.Context) bool {
	cur, ok := h.App.Current()
	if !ok || cur.ID != c.Param("id") {
		h.fail(c, app.ErrNoBoard)
		return false
	}
	return true
}

func (h *Handler) ListBoards(c *gin.Context) {
	c.JSON(http.StatusOK, h.App.Boards())
}

func (h *Handler) CreateBoard(c *gin.Context) {
	var input struct {
		Topic string `json:"topic" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, app.CreateBoard{Topic: input.Topic, As: as(c)})
}

// OpenBoard selects the board. An unknown id clears the selection and answers 404.
func (h *Handler) OpenBoard(c *gin.Context) {
	res, err := h.App.Dispatch(c.Request.Context(), app.OpenBoard{ID: c.Param("id")})
	if err != nil {
		h.fail(c, err)
		return
	}
	if !res.Applied {
		h.fail(c, engine.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, res.Board)
}

func (h *Handler) OpenFragment(c *gin.Context) {
	var input struct {
		Fragment string `json:"fragment"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fragment, err := h.App.OpenFromFragment(c.Request.Context(), input.Fragment)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fragment": fragment})
}

func (h *Handler) DeleteBoard(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.App.Board(id); !ok {
		h.fail(c, engine.ErrNotFound)
		return
	}
	h.dispatch(c, app.DeleteBoard{ID: id, As: as(c)})
}

func (h *Handler) SetBackground(c *gin.Context) {
	var input struct {
		Image string                `json:"image"`
		Size  schema.BackgroundSize `json:"size"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.onBoard(c) {
		return
	}
	h.dispatch(c, app.SetBackground{Image: input.Image, Size: input.Size, As: as(c)})
}

func (h *Handler) AddItem(c *gin.Context) {
	var input struct {
		Type      schema.ItemType `json:"type" binding:"required"`
		Content   string          `json:"content"`
		Color     string          `json:"color"`
		TextColor string          `json:"textColor"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.onBoard(c) {
		return
	}
	h.dispatch(c, app.AddItem{
		Type:      input.Type,
		Content:   input.Content,
		Color:     input.Color,
		TextColor: input.TextColor,
		BoardID:   c.Param("id"),
		As:        as(c),
	})
}

func (h *Handler) DeleteItem(c *gin.Context) {
	if !h.onBoard(c) {
		return
	}
	h.dispatch(c, app.DeleteItem{ItemID: c.Param("item"), As: as(c)})
}

func (h *Handler) ChangeLayer(c *gin.Context) {
	var input struct {
		Direction app.Layer `json:"direction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.onBoard(c) {
		return
	}
	h.dispatch(c, app.ChangeLayer{ItemID: c.Param("item"), Direction: input.Direction, As: as(c)})
}

type gestureInput struct {
	ItemID string  `json:"itemId" binding:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (h *Handler) BeginDrag(c *gin.Context) {
	var input gestureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, app.BeginDrag{ItemID: input.ItemID, Pointer: interaction.Point{X: input.X, Y: input.Y}, As: as(c)})
}

func (h *Handler) BeginResize(c *gin.Context) {
	var input gestureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, app.BeginResize{ItemID: input.ItemID, Pointer: interaction.Point{X: input.X, Y: input.Y}, As: as(c)})
}

func (h *Handler) Move(c *gin.Context) {
	var p interaction.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, app.PointerMove{Pointer: p})
}

func (h *Handler) Release(c *gin.Context) {
	h.dispatch(c, app.Release{})
}

func (h *Handler) Cancel(c *gin.Context) {
	h.dispatch(c, app.CancelGesture{})
}

func (h *Handler) Session(c *gin.Context) {
	user, ok := h.App.User()
	if !ok {
		h.fail(c, app.ErrNoUser)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "language": h.App.Language()})
}

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, app.Login{Name: input.Name})
}

func (h *Handler) Logout(c *gin.Context) {
	h.dispatch(c, app.Logout{})
}

func (h *Handler) SetLanguage(c *gin.Context) {
	var input struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, app.SetLanguage{Code: input.Code})
}

func (h *Handler) SetViewport(c *gin.Context) {
	var p interaction.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, app.SetViewport{Center: p})
}

// SetCredential stores the sticker credential; an empty secret removes it.
func (h *Handler) SetCredential(c *gin.Context) {
	var input struct {
		Secret string `json:"secret"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.App.SetCredential(c.Request.Context(), input.Secret); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) GenerateSticker(c *gin.Context) {
	var input struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.App.GenerateSticker(c.Request.Context(), input.Prompt, as(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Translate(c *gin.Context) {
	locale := h.locale(c)
	if q := c.Query("locale"); q != "" {
		locale = h.App.Translator().Match(q)
	}
	c.JSON(http.StatusOK, gin.H{
		"locale": locale,
		"text":   h.App.Translator().T(locale, c.Param("key")),
	})
}
