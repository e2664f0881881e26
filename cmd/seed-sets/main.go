package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pyqprep/mocktest-backend/internal/config"
	"github.com/pyqprep/mocktest-backend/internal/database"
	"github.com/pyqprep/mocktest-backend/internal/logger"
	"github.com/pyqprep/mocktest-backend/internal/model"
	"github.com/pyqprep/mocktest-backend/internal/repository"
)

// seedSet is the JSON shape of one exam set in the seed file.
type seedSet struct {
	Name             string         `json:"name"`
	DurationMinutes  int            `json:"duration_minutes"`
	MarksPerQuestion float64        `json:"marks_per_question"`
	NegativeMarking  float64        `json:"negative_marking"`
	Questions        []seedQuestion `json:"questions"`
}

type seedQuestion struct {
	QuestionText  string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption string `json:"correct_option"`
}

func main() {
	var seedFile string
	flag.StringVar(&seedFile, "file", "seeds/sets.json", "Path to the seed JSON file")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	setRepo := repository.NewExamSetRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	raw, err := os.ReadFile(seedFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", seedFile).Msg("Failed to read seed file")
	}

	var sets []seedSet
	if err := json.Unmarshal(raw, &sets); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse seed file")
	}

	fmt.Printf("=== Seeding %d Exam Sets ===\n", len(sets))

	for _, seed := range sets {
		set := &model.ExamSet{
			Name:             seed.Name,
			DurationMinutes:  seed.DurationMinutes,
			MarksPerQuestion: seed.MarksPerQuestion,
			NegativeMarking:  seed.NegativeMarking,
		}
		if err := setRepo.Create(ctx, set); err != nil {
			log.Fatal().Err(err).Str("name", seed.Name).Msg("Failed to create exam set")
		}

		questions := make([]model.Question, 0, len(seed.Questions))
		for i, q := range seed.Questions {
			if !model.IsValidOption(q.CorrectOption) {
				log.Fatal().
					Str("set", seed.Name).
					Int("question", i+1).
					Str("correct_option", q.CorrectOption).
					Msg("Invalid correct option in seed file")
			}
			questions = append(questions, model.Question{
				ExamSetID:     set.ID,
				QuestionText:  q.QuestionText,
				OptionA:       q.OptionA,
				OptionB:       q.OptionB,
				OptionC:       q.OptionC,
				OptionD:       q.OptionD,
				CorrectOption: q.CorrectOption,
				OrderNum:      i + 1,
			})
		}
		if err := questionRepo.BulkInsert(ctx, questions); err != nil {
			log.Fatal().Err(err).Str("name", seed.Name).Msg("Failed to insert questions")
		}

		fmt.Printf("Seeded %q with %d questions\n", set.Name, len(questions))
	}

	fmt.Println("Done")
}
