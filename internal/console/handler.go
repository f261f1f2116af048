package console

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/votedesk/console/internal/elections"
	"github.com/votedesk/console/internal/middleware"
	"github.com/votedesk/console/internal/models"
	"github.com/votedesk/console/internal/panel"
	"github.com/votedesk/console/internal/tickets"
	"github.com/votedesk/console/pkg/response"
)

// SheetFilename is the download name of rendered ticket sheets.
const SheetFilename = "tickets-qr.pdf"

// Handler serves the /panel API.
type Handler struct {
	registry *Registry
	api      VotingAPI
	archiver Archiver
	frontURL string
	logger   *zap.Logger
}

// NewHandler creates the panel handler. archiver may be nil, which disables
// the archive routes.
func NewHandler(registry *Registry, api VotingAPI, archiver Archiver, frontURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, api: api, archiver: archiver, frontURL: frontURL, logger: logger}
}

// Register mounts the routes on a group already guarded by middleware.JWT.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/stats", h.Stats)
	g.GET("/tickets/inventory", h.Inventory)
	g.POST("/tickets", h.CreateTickets)
	g.GET("/tickets/sheet.pdf", h.Sheet)
	g.POST("/tickets/archive", h.Archive)
	g.GET("/tickets/archive/:job", h.ArchiveStatus)

	g.GET("/elections", h.ListElections)
	g.POST("/elections", h.CreateElection)
	g.POST("/elections/:id/panels/:kind/toggle", h.TogglePanel)
	g.DELETE("/elections/:id/panels/:kind", h.ClosePanel)
	g.PUT("/elections/:id/status", h.UpdateStatus)
	g.PUT("/elections/:id/dates", h.UpdateDates)
	g.POST("/elections/:id/options", h.AddOption)

	g.POST("/logout", h.Logout)
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	id, ok := middleware.SessionID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return nil, false
	}
	return h.registry.Get(id), true
}

func electionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid election id")
		return 0, false
	}
	return id, true
}

// Stats handles GET /panel/stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.api.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, stats)
}

// Inventory handles GET /panel/tickets/inventory.
func (h *Handler) Inventory(c *gin.Context) {
	inv, err := h.api.TicketInventory(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, inv)
}

// CreateTicketsRequest is the body for POST /panel/tickets.
type CreateTicketsRequest struct {
	Count int `json:"count" binding:"required,min=1"`
}

// CreateTicketsResponse carries the new batch and the refreshed counters.
type CreateTicketsResponse struct {
	models.TicketBatch
	Stats   *models.Stats `json:"stats,omitempty"`
	Warning string        `json:"warning,omitempty"`
}

// CreateTickets handles POST /panel/tickets.
func (h *Handler) CreateTickets(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req CreateTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "count", "count must be a positive number")
		return
	}
	batch, err := h.api.CreateTickets(c.Request.Context(), req.Count)
	if err != nil {
		h.respondError(c, err)
		return
	}
	s.SetLastBatch(batch)
	h.logger.Info("tickets created", zap.String("session_id", s.ID.String()), zap.Int("count", batch.Count))

	out := CreateTicketsResponse{TicketBatch: batch}
	if stats, err := h.api.Stats(c.Request.Context()); err != nil {
		out.Warning = "tickets created, but refreshing stats failed: " + err.Error()
	} else {
		out.Stats = &stats
	}
	response.Created(c, out)
}

// Sheet handles GET /panel/tickets/sheet.pdf for the last batch.
func (h *Handler) Sheet(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	batch, ok := s.LastBatch()
	if !ok {
		response.NotFound(c, "no tickets were created in this session")
		return
	}
	var buf bytes.Buffer
	if err := tickets.NewRenderer(h.frontURL).Render(c.Request.Context(), &buf, batch.TicketKeys); err != nil {
		h.logger.Error("ticket sheet render failed", zap.Error(err))
		response.Internal(c, "failed to render ticket sheet")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+SheetFilename+`"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// Archive handles POST /panel/tickets/archive.
func (h *Handler) Archive(c *gin.Context) {
	if h.archiver == nil {
		response.ServiceUnavailable(c, "ticket archive is not configured")
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	batch, ok := s.LastBatch()
	if !ok {
		response.NotFound(c, "no tickets were created in this session")
		return
	}
	st, err := h.archiver.Enqueue(c.Request.Context(), s.ID, h.frontURL, batch.TicketKeys)
	if err != nil {
		h.logger.Error("archive enqueue failed", zap.Error(err))
		response.ServiceUnavailable(c, "failed to queue ticket archive")
		return
	}
	response.Accepted(c, st)
}

// ArchiveStatus handles GET /panel/tickets/archive/:job.
func (h *Handler) ArchiveStatus(c *gin.Context) {
	if h.archiver == nil {
		response.ServiceUnavailable(c, "ticket archive is not configured")
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	st, err := h.archiver.Status(c.Request.Context(), s.ID, c.Param("job"))
	if err != nil {
		if errors.Is(err, ErrArchiveNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("archive status read failed", zap.Error(err))
		response.ServiceUnavailable(c, "failed to read archive status")
		return
	}
	response.OK(c, st)
}

// ElectionsResponse is the election table with panel states.
type ElectionsResponse struct {
	Elections []panel.ElectionView `json:"elections"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// ListElections handles GET /panel/elections. ?refresh=1 refetches the list.
func (h *Handler) ListElections(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var (
		list []models.Election
		err  error
	)
	if refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "0")); refresh {
		list, err = s.Elections.Refresh(ctx)
	} else {
		list, err = s.Elections.Ensure(ctx)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]panel.ElectionView, 0, len(list))
	for _, e := range list {
		views = append(views, s.Panels.View(e))
	}
	response.OK(c, ElectionsResponse{Elections: views, FetchedAt: s.Elections.FetchedAt()})
}

// MutationResponse reports a saved change.
type MutationResponse struct {
	ElectionID int64  `json:"election_id"`
	Warning    string `json:"warning,omitempty"`
}

// CreateElection handles POST /panel/elections.
func (h *Handler) CreateElection(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var form elections.CreateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	id, err := s.Mutations.CreateElection(c.Request.Context(), form)
	warning, err := staleWarning(err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, MutationResponse{ElectionID: id, Warning: warning})
}

// PanelResponse is a panel after a toggle or close.
type PanelResponse struct {
	ElectionID int64           `json:"election_id"`
	Panel      panel.PanelKind `json:"panel"`
	panel.PanelView
}

func (h *Handler) panelRequest(c *gin.Context) (*Session, int64, panel.PanelKind, bool) {
	s, ok := h.session(c)
	if !ok {
		return nil, 0, "", false
	}
	id, ok := electionID(c)
	if !ok {
		return nil, 0, "", false
	}
	kind, err := panel.ParsePanelKind(c.Param("kind"))
	if err != nil {
		h.respondError(c, err)
		return nil, 0, "", false
	}
	return s, id, kind, true
}

func panelResponse(s *Session, id int64, kind panel.PanelKind) PanelResponse {
	v := s.Panels.View(models.Election{ID: id})
	out := PanelResponse{ElectionID: id, Panel: kind, PanelView: v.EditPanel}
	if kind == panel.PanelResults {
		out.PanelView = v.ResultsPanel
	}
	return out
}

// TogglePanel handles POST /panel/elections/:id/panels/:kind/toggle.
func (h *Handler) TogglePanel(c *gin.Context) {
	s, id, kind, ok := h.panelRequest(c)
	if !ok {
		return
	}
	if _, err := s.Panels.Toggle(c.Request.Context(), id, kind); err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, panelResponse(s, id, kind))
}

// ClosePanel handles DELETE /panel/elections/:id/panels/:kind.
func (h *Handler) ClosePanel(c *gin.Context) {
	s, id, kind, ok := h.panelRequest(c)
	if !ok {
		return
	}
	s.Panels.Close(id, kind)
	response.OK(c, panelResponse(s, id, kind))
}

// StatusRequest is the body for PUT /panel/elections/:id/status.
type StatusRequest struct {
	Status models.ElectionStatus `json:"status"`
}

// UpdateStatus handles PUT /panel/elections/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := electionID(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.mutated(c, id, s.Mutations.UpdateStatus(c.Request.Context(), id, req.Status))
}

// DatesRequest is the body for PUT /panel/elections/:id/dates.
type DatesRequest struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

// UpdateDates handles PUT /panel/elections/:id/dates.
func (h *Handler) UpdateDates(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := electionID(c)
	if !ok {
		return
	}
	var req DatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.mutated(c, id, s.Mutations.UpdateDates(c.Request.Context(), id, req.StartsAt, req.EndsAt))
}

// AddOption handles POST /panel/elections/:id/options.
func (h *Handler) AddOption(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := electionID(c)
	if !ok {
		return
	}
	var req models.CreateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.mutated(c, id, s.Mutations.AddOption(c.Request.Context(), id, req.Label))
}

func (h *Handler) mutated(c *gin.Context, id int64, err error) {
	warning, err := staleWarning(err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, MutationResponse{ElectionID: id, Warning: warning})
}

// Logout handles POST /panel/logout and drops the session state.
func (h *Handler) Logout(c *gin.Context) {
	id, ok := middleware.SessionID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}
	h.registry.Drop(id)
	response.OK(c, gin.H{"session_id": id.String()})
}
