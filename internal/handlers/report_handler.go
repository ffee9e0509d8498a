package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/semtim/backend/internal/fanout"
	"github.com/semtim/backend/internal/models"
	"github.com/semtim/backend/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReportHandler handles report-related HTTP requests
type ReportHandler struct {
	reportRepository repositories.ReportRepository
	fanoutService    *fanout.Service
	logger           *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportRepo repositories.ReportRepository, fanoutService *fanout.Service, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportRepository: reportRepo,
		fanoutService:    fanoutService,
		logger:           logger,
	}
}

// RegisterReportRoutes registers report routes
func (h *ReportHandler) RegisterReportRoutes(g *echo.Group) {
	g.POST("/reports", h.CreateReport)
	g.GET("/reports", h.ListReports)
	g.GET("/reports/:id", h.GetReport)
}

// CreateReport persists a report and enqueues its notification fan-out. The
// report's UUID is the fan-out source reference, so a retried fan-out of the
// same report never duplicates notifications.
func (h *ReportHandler) CreateReport(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	report := &models.Report{
		ID:       uuid.NewString(),
		AuthorID: currentUserID,
		Severity: req.Severity,
		City:     req.City,
		District: req.District,
		Category: req.Category,
		Title:    req.Title,
		Body:     req.Body,
	}

	if err := h.reportRepository.CreateReport(ctx, report); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// The report is committed; fan-out failure must not fail this request.
	trigger := fanout.Trigger{
		Kind:      fanout.KindReport,
		ActorID:   currentUserID,
		Severity:  fanout.Severity(report.Severity),
		City:      report.City,
		District:  report.District,
		Category:  report.Category,
		Title:     report.Title,
		Body:      report.Body,
		Data:      map[string]interface{}{"report_id": report.ID},
		SourceRef: report.ID,
	}
	if err := h.fanoutService.Enqueue(ctx, trigger); err != nil {
		h.logger.Error("failed to enqueue report fan-out",
			zap.String("report_id", report.ID),
			zap.Error(err))
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"report": report}})
}

// ListReports returns the paginated report feed for a city
func (h *ReportHandler) ListReports(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	city := c.QueryParam("city")
	if city == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "city query parameter is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	reports, total, err := h.reportRepository.ListByCity(c.Request().Context(), city, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"reports": reports,
		},
		"meta": echo.Map{
			"currentPage":  page,
			"totalPages":   totalPages,
			"totalItems":   total,
			"itemsPerPage": limit,
		},
	})
}

// GetReport returns a single report by ID
func (h *ReportHandler) GetReport(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	report, err := h.reportRepository.GetReportByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Report not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"report": report}})
}
