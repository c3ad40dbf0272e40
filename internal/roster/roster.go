package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"student-taskgen/internal/models"
)

// Required roster columns. Additional columns are ignored.
const (
	ColumnStudentName = "student_name"
	ColumnRole        = "role"
)

var (
	// ErrMissingColumns is returned when the roster header lacks a required column.
	ErrMissingColumns = errors.New("roster must contain student_name and role columns")
	// ErrEmptyRoster is returned when the roster contains a header but no students.
	ErrEmptyRoster = errors.New("roster contains no students")
)

// Parse reads a CSV roster and returns the students in input order with
// localized roles applied.
func Parse(r io.Reader) ([]models.Student, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingColumns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read roster header: %w", err)
	}

	nameIdx, roleIdx := -1, -1
	for i, col := range header {
		switch normalizeHeader(col) {
		case ColumnStudentName:
			nameIdx = i
		case ColumnRole:
			roleIdx = i
		}
	}
	if nameIdx == -1 || roleIdx == -1 {
		return nil, ErrMissingColumns
	}

	var students []models.Student
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read roster line %d: %w", line+1, err)
		}
		line++

		if len(record) <= nameIdx || len(record) <= roleIdx {
			return nil, fmt.Errorf("roster line %d has %d columns, need at least %d", line, len(record), max(nameIdx, roleIdx)+1)
		}

		name := strings.TrimSpace(record[nameIdx])
		role := strings.TrimSpace(record[roleIdx])
		if name == "" && role == "" {
			continue
		}

		students = append(students, models.Student{
			Name:          name,
			Role:          role,
			LocalizedRole: models.LocalizeRole(role),
		})
	}

	if len(students) == 0 {
		return nil, ErrEmptyRoster
	}

	return students, nil
}

// normalizeHeader trims whitespace and a UTF-8 BOM, which spreadsheet exports
// commonly prepend to the first header cell.
func normalizeHeader(col string) string {
	return strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF"))
}
