// handlers/report_export.go
package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"p9e.in/siyana/config"
	"p9e.in/siyana/models"
)

// exportReports loads the rows for an export with the same filters the
// list endpoint understands.
func exportReports(r *http.Request) ([]models.Report, error) {
	q := config.DB.Model(&models.Report{}).Order("created_at DESC")
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if branch := r.URL.Query().Get("branchId"); branch != "" {
		q = q.Where("branch_id = ?", branch)
	}
	if from := r.URL.Query().Get("from"); from != "" {
		q = q.Where("created_at >= ?", from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		q = q.Where("created_at <= ?", to)
	}

	var reports []models.Report
	return reports, q.Find(&reports).Error
}

var exportHeaders = []string{
	"رقم البلاغ", "الفرع", "الجهاز", "الوصف", "الحالة", "الأولوية",
	"الفني", "التكلفة", "تاريخ الإنشاء", "الإجابات",
}

func exportRow(report *models.Report) []interface{} {
	cost := ""
	if report.Cost != nil {
		cost = fmt.Sprintf("%.2f", *report.Cost)
	}

	// Flatten the answer snapshots into "label: value" pairs so exported
	// sheets survive later form-schema edits.
	answers := make([]string, 0, len(report.DynamicAnswers))
	for _, a := range report.DynamicAnswers {
		answers = append(answers, fmt.Sprintf("%s: %v", a.LabelAr, a.Value))
	}

	return []interface{}{
		report.ID.String(),
		report.BranchName,
		report.MachineType,
		report.Description,
		string(report.Status),
		string(report.Priority),
		report.AssignedTechnicianName,
		cost,
		report.CreatedAt.Format("2006-01-02 15:04"),
		strings.Join(answers, " | "),
	}
}

// ExportReportsToExcel exports filtered tickets to an xlsx download.
func ExportReportsToExcel(w http.ResponseWriter, r *http.Request) {
	reports, err := exportReports(r)
	if err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	f := excelize.NewFile()
	sheetName := "Reports"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		http.Error(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "right", Vertical: "center"},
	})
	f.SetCellValue(sheetName, "A1", "بلاغات الصيانة")
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)
	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for colIdx, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 4)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		f.SetColWidth(sheetName, columnIndexToLetter(colIdx+1), columnIndexToLetter(colIdx+1), 22)
	}

	dataStyle, _ := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "CCCCCC", Style: 1},
			{Type: "right", Color: "CCCCCC", Style: 1},
			{Type: "top", Color: "CCCCCC", Style: 1},
			{Type: "bottom", Color: "CCCCCC", Style: 1},
		},
	})
	for rowIdx, report := range reports {
		rep := report
		for colIdx, value := range exportRow(&rep) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+5)
			f.SetCellValue(sheetName, cell, value)
			f.SetCellStyle(sheetName, cell, cell, dataStyle)
		}
	}

	// Summary block under the data.
	summaryRow := len(reports) + 7
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
	})
	cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	f.SetCellValue(sheetName, cell, "Summary")
	f.SetCellStyle(sheetName, cell, cell, summaryStyle)

	var totalCost float64
	counts := map[models.ReportStatus]int{}
	for _, rep := range reports {
		counts[rep.Status]++
		if rep.Cost != nil {
			totalCost += *rep.Cost
		}
	}
	summaryRow++
	for _, status := range []models.ReportStatus{models.StatusNew, models.StatusAssigned,
		models.StatusInProgress, models.StatusPendingParts, models.StatusCompleted, models.StatusClosed} {
		keyCell, _ := excelize.CoordinatesToCellName(1, summaryRow)
		valueCell, _ := excelize.CoordinatesToCellName(2, summaryRow)
		f.SetCellValue(sheetName, keyCell, string(status))
		f.SetCellValue(sheetName, valueCell, counts[status])
		summaryRow++
	}
	keyCell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	valueCell, _ := excelize.CoordinatesToCellName(2, summaryRow)
	f.SetCellValue(sheetName, keyCell, "إجمالي التكلفة")
	f.SetCellValue(sheetName, valueCell, totalCost)

	f.DeleteSheet("Sheet1")

	buffer, err := f.WriteToBuffer()
	if err != nil {
		http.Error(w, "Failed to write Excel file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("maintenance_reports_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}

// ExportReportsToCSV exports the same rows as CSV.
func ExportReportsToCSV(w http.ResponseWriter, r *http.Request) {
	reports, err := exportReports(r)
	if err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Write(exportHeaders)
	for _, report := range reports {
		rep := report
		record := make([]string, 0, len(exportHeaders))
		for _, value := range exportRow(&rep) {
			record = append(record, fmt.Sprintf("%v", value))
		}
		writer.Write(record)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		http.Error(w, "Failed to generate CSV file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("maintenance_reports_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func columnIndexToLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+(col%26))) + result
		col /= 26
	}
	return result
}
