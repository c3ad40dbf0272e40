package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"student-taskgen/internal/models"
)

// ExportFileName is the download name offered for the exported table.
const ExportFileName = "tasks_output.csv"

// utf8BOM makes spreadsheet applications detect the encoding of Cyrillic
// headers correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportService serializes task records to downloadable delimited text with
// localized column headers.
type ExportService struct{}

// NewExportService creates a new export service
func NewExportService() *ExportService {
	return &ExportService{}
}

// WriteCSV writes the records as UTF-8 CSV with a BOM. The priority column is
// only present in extended mode.
func (s *ExportService) WriteCSV(w io.Writer, records []models.TaskRecord, mode models.OutputMode) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)

	header := []string{"Название задачи", "Описание задачи", "Статус"}
	if mode == models.ModeExtended {
		header = append(header, "Приоритет")
	}
	header = append(header, "Роль", "Исполнитель", "Автор")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range records {
		row := []string{record.Title, record.Description, record.Status}
		if mode == models.ModeExtended {
			row = append(row, record.Priority)
		}
		row = append(row, record.Role, record.Executor, record.Author)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
