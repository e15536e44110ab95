package controllers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/yeremiapane/cleaning-app/events"
	"github.com/yeremiapane/cleaning-app/services"
	"github.com/yeremiapane/cleaning-app/utils"
	"gorm.io/gorm"
)

type ReportController struct {
	DB      *gorm.DB
	Reports *services.ReportService
}

func NewReportController(db *gorm.DB) *ReportController {
	return &ReportController{
		DB:      db,
		Reports: services.NewReportService(db),
	}
}

// GetDashboardStats -> counts by room/session status plus average duration
func (rc *ReportController) GetDashboardStats(c *gin.Context) {
	stats, err := rc.Reports.GetDashboardStats(requestContext(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastDashboardStats(stats)

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}

// GetWorkerReport -> per-worker completed/cancelled counts and durations
func (rc *ReportController) GetWorkerReport(c *gin.Context) {
	from, to := parseRange(c)

	summaries, err := rc.Reports.WorkerSummaries(requestContext(c), from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Worker report", summaries)
}

// GetRoomReport -> per-room cleaning frequency and durations
func (rc *ReportController) GetRoomReport(c *gin.Context) {
	from, to := parseRange(c)

	summaries, err := rc.Reports.RoomSummaries(requestContext(c), from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Room report", summaries)
}

// ExportCSV -> session history as a CSV download
func (rc *ReportController) ExportCSV(c *gin.Context) {
	from, to := parseRange(c)

	sessions, err := rc.Reports.Sessions(requestContext(c), services.SessionFilter{From: from, To: to})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="sessions.csv"`)

	w := csv.NewWriter(c.Writer)
	w.Write([]string{"session_id", "ref", "room", "category", "worker", "status", "started_at", "completed_at", "duration_minutes"})
	for _, s := range sessions {
		completed := ""
		duration := ""
		if s.CompletedAt != nil {
			completed = s.CompletedAt.Format(time.RFC3339)
			duration = fmt.Sprintf("%.1f", s.CompletedAt.Sub(s.StartedAt).Minutes())
		}
		w.Write([]string{
			strconv.FormatUint(uint64(s.ID), 10),
			s.Ref,
			s.Room.Name,
			s.Room.Category,
			s.Worker.Name,
			s.Status,
			s.StartedAt.Format(time.RFC3339),
			completed,
			duration,
		})
	}
	w.Flush()
}

// ExportPDF -> summary report as a PDF download
func (rc *ReportController) ExportPDF(c *gin.Context) {
	from, to := parseRange(c)
	ctx := requestContext(c)

	stats, err := rc.Reports.GetDashboardStats(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	workers, err := rc.Reports.WorkerSummaries(ctx, from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Cleaning Report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Rooms: %d total, %d pending, %d in progress, %d completed, %d needs attention",
		stats.RoomStats.Total, stats.RoomStats.Pending, stats.RoomStats.InProgress,
		stats.RoomStats.Completed, stats.RoomStats.NeedsAttention))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Sessions: %d total, %d completed, %d cancelled, avg %.1f min",
		stats.SessionStats.Total, stats.SessionStats.Completed,
		stats.SessionStats.Cancelled, stats.AvgCleaningMinutes))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Per worker")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 7, "Worker", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Completed", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Cancelled", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Avg minutes", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, w := range workers {
		pdf.CellFormat(60, 7, w.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, strconv.FormatInt(w.Completed, 10), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, strconv.FormatInt(w.Cancelled, 10), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%.1f", w.AvgMinutes), "1", 1, "R", false, 0, "")
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="cleaning-report.pdf"`)
	if err := pdf.Output(c.Writer); err != nil {
		utils.ErrorLogger.Printf("Error writing PDF: %v", err)
	}
}

// ExportChart -> room status distribution as a PNG bar chart
func (rc *ReportController) ExportChart(c *gin.Context) {
	stats, err := rc.Reports.GetDashboardStats(requestContext(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	graph := chart.BarChart{
		Title:    "Rooms by status",
		Height:   400,
		BarWidth: 50,
		Bars: []chart.Value{
			{Label: "Pending", Value: float64(stats.RoomStats.Pending)},
			{Label: "In progress", Value: float64(stats.RoomStats.InProgress)},
			{Label: "Completed", Value: float64(stats.RoomStats.Completed)},
			{Label: "Attention", Value: float64(stats.RoomStats.NeedsAttention)},
		},
	}

	c.Header("Content-Type", "image/png")
	if err := graph.Render(chart.PNG, c.Writer); err != nil {
		utils.ErrorLogger.Printf("Error rendering chart: %v", err)
	}
}

func parseRange(c *gin.Context) (time.Time, time.Time) {
	var from, to time.Time
	if v, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		from = v
	}
	if v, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		// inclusive end date
		to = v.Add(24 * time.Hour)
	}
	return from, to
}
