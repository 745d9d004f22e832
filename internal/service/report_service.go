package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"factoryms/internal/model"
	"factoryms/internal/repository"
	"factoryms/pkg/apperror"
)

// ReportService produces the reporting screens: user statistics, recent
// activity and the requisition spreadsheet export.
type ReportService interface {
	UserStatistics(ctx context.Context, days int) (repository.UserStats, error)
	ExportRequisitions(ctx context.Context, actor Actor, filter ListRequisitionsFilter) (*bytes.Buffer, string, error)
}

type reportService struct {
	reportRepo      repository.ReportRepository
	requisitionRepo repository.RequisitionRepository
}

func NewReportService(reportRepo repository.ReportRepository, requisitionRepo repository.RequisitionRepository) ReportService {
	return &reportService{reportRepo: reportRepo, requisitionRepo: requisitionRepo}
}

func (s *reportService) UserStatistics(ctx context.Context, days int) (repository.UserStats, error) {
	if days <= 0 {
		days = 30
	}
	stats, err := s.reportRepo.UserStats(ctx, days)
	if err != nil {
		return repository.UserStats{}, apperror.Persistence("failed to compute user statistics", err)
	}
	return stats, nil
}

var exportHeaders = []string{
	"Number", "Title", "Department", "Priority", "Status",
	"Requested By", "Approved By", "Items", "Total Cost", "Created",
}

// ExportRequisitions renders the filtered requisition list as an xlsx
// workbook and returns the buffer plus a download filename.
func (s *reportService) ExportRequisitions(ctx context.Context, actor Actor, filter ListRequisitionsFilter) (*bytes.Buffer, string, error) {
	repoFilter := repository.RequisitionFilter{
		Status:     filter.Status,
		Department: filter.Department,
		Priority:   filter.Priority,
	}
	if !model.IsPrivilegedRole(actor.Role) {
		requesterID := actor.ID
		repoFilter.RequestedBy = &requesterID
	}

	rows, err := s.requisitionRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, "", apperror.Persistence("failed to load requisitions for export", err)
	}

	f := excelize.NewFile()
	sheet := "Requisitions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", apperror.Persistence("failed to build export workbook", err)
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	f.SetCellValue(sheet, "A1", "Requisition Report")
	f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	f.SetCellValue(sheet, "A2", "Generated: "+time.Now().Format("2006-01-02 15:04:05"))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	for colIdx, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 4)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	f.SetColWidth(sheet, "A", "J", 18)

	for rowIdx, row := range rows {
		values := []interface{}{
			row.RequisitionNumber,
			row.Title,
			row.Department,
			row.Priority,
			row.Status,
			row.RequestedByName,
			row.ApprovedByName,
			row.ItemCount,
			row.TotalEstimatedCost.StringFixed(2),
			row.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+5)
			f.SetCellValue(sheet, cell, value)
		}
	}

	f.DeleteSheet("Sheet1")

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", apperror.Persistence("failed to write export workbook", err)
	}

	filename := fmt.Sprintf("requisitions_%s.xlsx", time.Now().Format("20060102_150405"))
	return buffer, filename, nil
}
