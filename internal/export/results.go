package export

import (
	"fmt"
	"io"

	"github.com/pyqprep/mocktest-backend/internal/model"
	"github.com/pyqprep/mocktest-backend/internal/repository"
	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Results"

// WriteSetResults renders a set's attempt results as an xlsx workbook, one
// row per attempt.
func WriteSetResults(w io.Writer, set *model.ExamSet, results []repository.SetResult) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(resultsSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}

	headers := []interface{}{"Name", "Email", "Status", "Score", "Max Score", "Started At", "Finished At"}
	if err := f.SetSheetRow(resultsSheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	maxScore := float64(set.QuestionCount) * set.MarksPerQuestion
	for i, res := range results {
		score := interface{}(nil)
		if res.Score != nil {
			score = *res.Score
		}
		finished := interface{}(nil)
		if res.FinishedAt != nil {
			finished = res.FinishedAt.Format("2006-01-02 15:04:05")
		}
		row := []interface{}{
			res.UserName,
			res.UserEmail,
			string(res.Status),
			score,
			maxScore,
			res.StartedAt.Format("2006-01-02 15:04:05"),
			finished,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("compute cell: %w", err)
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
