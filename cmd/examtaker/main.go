package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pyqprep/mocktest-backend/internal/client"
	"github.com/pyqprep/mocktest-backend/internal/config"
	"github.com/pyqprep/mocktest-backend/internal/logger"
	"github.com/pyqprep/mocktest-backend/internal/model"
	"github.com/pyqprep/mocktest-backend/internal/session"
	"golang.org/x/term"
)

// terminalNotifier prints session notifications to stderr so they don't
// interleave with the question display.
type terminalNotifier struct{}

func (terminalNotifier) Notify(level session.Level, message string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", level, message)
}

func main() {
	var serverURL string
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "Backend base URL")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api, err := client.New(serverURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid server URL")
	}

	reader := bufio.NewReader(os.Stdin)

	// ─── Login ─────────────────────────────────────────────────────────
	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read password")
	}
	fmt.Println()

	if err := api.Login(ctx, email, strings.TrimSpace(string(bytePassword))); err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}

	// ─── Pick a Set ────────────────────────────────────────────────────
	sets, err := api.ListSets(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list exam sets")
	}
	if len(sets) == 0 {
		fmt.Println("No exam sets available.")
		return
	}

	fmt.Println("\nAvailable exam sets:")
	for i, set := range sets {
		fmt.Printf("  %d. %s (%d questions, %d min, +%.2f/-%.2f)\n",
			i+1, set.Name, set.QuestionCount, set.DurationMinutes,
			set.MarksPerQuestion, set.NegativeMarking)
	}
	fmt.Print("Choose a set: ")
	choice, _ := reader.ReadString('\n')
	idx, err := strconv.Atoi(strings.TrimSpace(choice))
	if err != nil || idx < 1 || idx > len(sets) {
		fmt.Println("Invalid choice.")
		return
	}
	set := sets[idx-1]

	// ─── Start / Resume ────────────────────────────────────────────────
	attempt, err := api.StartAttempt(ctx, set.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start attempt")
	}
	snap, err := api.FetchAttempt(ctx, attempt.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load attempt")
	}
	if snap.Status != model.AttemptStatusInProgress {
		fmt.Println("This attempt is already submitted.")
		showResults(ctx, api, snap.ID)
		return
	}

	sess := session.New(snap, session.Options{
		Persister: api,
		Notifier:  terminalNotifier{},
		Logger:    log,
	})
	// Run returns once the attempt leaves the in-progress state, so the
	// command loop can react to an auto-submit without waiting for input.
	runDone := make(chan struct{})
	go func() {
		sess.Run(ctx)
		close(runDone)
	}()

	fmt.Printf("\nStarted %q: %d questions, %s remaining.\n",
		snap.ExamSet.Name, sess.TotalQuestions(), fmtDuration(sess.Remaining()))
	fmt.Println("Commands: a/b/c/d answer, n save&next, m mark&next, r toggle mark, x clear,")
	fmt.Println("          g <num> go to, p palette, t time, s submit, q quit")

	runLoop(ctx, reader, sess, runDone)

	// Let in-flight saves finish before reading results.
	sess.Flush()

	if sess.Status() == model.AttemptStatusSubmitted {
		fmt.Printf("\nSubmitted. Results at %s\n", sess.ResultsPath())
		showResults(ctx, api, sess.AttemptID())
	}
}

func runLoop(ctx context.Context, reader *bufio.Reader, sess *session.Session, done <-chan struct{}) {
	// Stdin reads block, so they run in their own goroutine; the loop
	// selects between the next command and the session finishing.
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
	}()

	for sess.Status() == model.AttemptStatusInProgress {
		printQuestion(sess)
		fmt.Print("> ")

		var line string
		select {
		case <-done:
			fmt.Println()
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}
		fields := strings.Fields(strings.ToLower(line))
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "a", "b", "c", "d":
			sess.SelectOption(strings.ToUpper(fields[0]))
		case "n":
			sess.SaveAndNext()
		case "m":
			sess.MarkForReviewAndNext()
		case "r":
			sess.ToggleMarkForReview()
		case "x":
			sess.ClearResponse()
		case "g":
			if len(fields) < 2 {
				fmt.Println("Usage: g <question number>")
				continue
			}
			num, err := strconv.Atoi(fields[1])
			if err != nil || num < 1 || num > sess.TotalQuestions() {
				fmt.Println("No such question.")
				continue
			}
			sess.Navigate(num - 1)
		case "p":
			printPalette(sess)
		case "t":
			fmt.Printf("Time left: %s  (this question: %s)\n",
				fmtDuration(sess.Remaining()), fmtDuration(sess.QuestionElapsed()))
		case "s":
			if err := sess.Submit(ctx); err != nil {
				fmt.Printf("Submit failed: %v\n", err)
			}
		case "q":
			return
		default:
			fmt.Println("Unknown command.")
		}
	}
}

func printQuestion(sess *session.Session) {
	q := sess.Current()
	counts := sess.Counts()

	fmt.Printf("\n[Q%d/%d]  answered %d, marked %d, left %s\n",
		sess.Index()+1, sess.TotalQuestions(),
		counts.Answered, counts.Marked, fmtDuration(sess.Remaining()))
	fmt.Println(q.QuestionText)
	fmt.Printf("  A) %s\n  B) %s\n  C) %s\n  D) %s\n", q.OptionA, q.OptionB, q.OptionC, q.OptionD)

	if answer, ok := sess.Answer(q.ID); ok {
		fmt.Printf("  [your answer: %s]", answer)
	}
	if sess.IsMarked(q.ID) {
		fmt.Print("  [marked for review]")
	}
	fmt.Println()
}

func printPalette(sess *session.Session) {
	glyphs := map[session.NavStatus]string{
		session.StatusCurrent:        "*",
		session.StatusAnswered:       "+",
		session.StatusMarked:         "?",
		session.StatusAnsweredMarked: "&",
		session.StatusNotVisited:     ".",
	}

	fmt.Print("Palette: ")
	for i, status := range sess.Palette() {
		fmt.Printf("%d%s ", i+1, glyphs[status])
	}
	fmt.Println("\n  * current  + answered  ? marked  & answered+marked  . not visited")
}

func showResults(ctx context.Context, api *client.Client, attemptID uuid.UUID) {
	// Grading is asynchronous; give it a few seconds.
	for i := 0; i < 5; i++ {
		result, err := api.Results(ctx, attemptID)
		if err != nil {
			fmt.Printf("Failed to fetch results: %v\n", err)
			return
		}
		if result.Score != nil {
			fmt.Printf("\n=== %s ===\n", result.ExamSet.Name)
			fmt.Printf("Score: %.2f / %.2f\n", *result.Score, result.MaxScore)
			fmt.Printf("Answered: %d / %d\n", result.AnsweredCount, result.TotalQuestions)
			if result.CorrectCount != nil {
				fmt.Printf("Correct: %d\n", *result.CorrectCount)
			}
			return
		}
		time.Sleep(time.Second)
	}
	fmt.Println("Results are not graded yet; check back shortly.")
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
