// Package store persists answers to an append-only CSV result log. The log is
// the single source of truth for which problems are done and how many points
// were earned: every answer is written and synced before the next problem
// starts, so an interrupted run loses at most the problem in flight.
package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ahrav/examsolve/internal/domain"
)

// Column names of the result log, in file order.
const (
	ColProblemID   = "problem_id"
	ColScore       = "score"
	ColPredicted   = "predicted"
	ColActual      = "actual"
	ColIsCorrect   = "is_correct"
	ColEarnedScore = "earned_score"
	ColReasoning   = "reasoning"
)

// Header is the first record of every result log.
var Header = []string{
	ColProblemID, ColScore, ColPredicted, ColActual, ColIsCorrect, ColEarnedScore, ColReasoning,
}

// ErrCorruptLog indicates the log exists but its header is unusable.
var ErrCorruptLog = errors.New("corrupt result log")

// utf8BOM prefixes new logs so spreadsheet tools detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const filePerm = 0o644

// CSVStore reads and appends result logs. It holds no per-target state; the
// log file itself is authoritative. A target must be owned by one run at a
// time.
type CSVStore struct {
	logger *slog.Logger
}

// New creates a CSVStore. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *CSVStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVStore{logger: logger.With("component", "store")}
}

// Initialize creates the log at target holding only the header, creating
// parent directories as needed. An existing file is overwritten; callers
// decide between initializing and resuming.
func (s *CSVStore) Initialize(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	header, err := headerBytes()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm) //nolint:gosec // operator-supplied path
	if err != nil {
		return fmt.Errorf("failed to initialize result log: %w", err)
	}
	if _, err := f.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write result log header: %w", err)
	}
	return syncAndClose(f)
}

// Append durably adds one answer to the end of the log at target. The record
// is fsynced before Append returns. A missing log is created with a header
// first, and a torn final record left by an earlier crash is dropped so the
// new record starts on its own line.
func (s *CSVStore) Append(a domain.Answer, target string) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_APPEND, filePerm) //nolint:gosec // operator-supplied path
	if err != nil {
		return fmt.Errorf("failed to open result log: %w", err)
	}

	prefix, err := s.appendPrefix(f)
	if err != nil {
		_ = f.Close()
		return err
	}

	rec, err := encodeRecord(answerRecord(a))
	if err != nil {
		_ = f.Close()
		return err
	}

	if _, err := f.Write(append(prefix, rec...)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append answer for problem %d: %w", a.ProblemID, err)
	}
	return syncAndClose(f)
}

// appendPrefix returns what must precede the next record: a header for an
// empty file, nothing when the file ends cleanly. Every record is written
// with its terminator in one write, so a file that does not end in a newline
// holds a record torn by a crash. It is cut off at the end of the last
// terminated record so the problem is solved again.
func (s *CSVStore) appendPrefix(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat result log: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return headerBytes()
	}

	end, err := completeLength(f, size)
	if err != nil {
		return nil, err
	}
	if end == size {
		return nil, nil
	}

	s.logger.Warn("dropping torn record at end of result log",
		"path", f.Name(), "offset", end, "bytes", size-end)
	if err := f.Truncate(end); err != nil {
		return nil, fmt.Errorf("failed to truncate torn result record: %w", err)
	}
	if end == 0 {
		return headerBytes()
	}
	return nil, nil
}

// completeLength returns the length of the prefix of f's first size bytes
// that holds only newline-terminated records.
func completeLength(f *os.File, size int64) (int64, error) {
	if size == 0 {
		return 0, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return 0, fmt.Errorf("failed to inspect result log tail: %w", err)
	}
	if last[0] == '\n' {
		return size, nil
	}
	return lastTerminatedEnd(f, size)
}

// lastTerminatedEnd returns the byte offset just past the last record that
// is followed by more input, i.e. the end of the last terminated record.
func lastTerminatedEnd(f *os.File, size int64) (int64, error) {
	r := csv.NewReader(io.NewSectionReader(f, 0, size))
	r.FieldsPerRecord = -1

	var end, prev int64
	for {
		_, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return 0, fmt.Errorf("failed to scan result log: %w", err)
		}
		prev, end = end, r.InputOffset()
	}
	if end == size {
		// The final record parsed but ran into EOF without its terminator.
		return prev, nil
	}
	return end, nil
}

func headerBytes() ([]byte, error) {
	header, err := encodeRecord(Header)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, utf8BOM...), header...), nil
}

// CompletedIDs returns the problem IDs already recorded at target. A missing
// or empty log yields an empty set.
func (s *CSVStore) CompletedIDs(target string) (map[int]struct{}, error) {
	answers, err := s.ReadAnswers(target)
	if err != nil {
		return nil, err
	}
	ids := make(map[int]struct{}, len(answers))
	for _, a := range answers {
		ids[a.ProblemID] = struct{}{}
	}
	return ids, nil
}

// Aggregate recomputes the score summary by scanning the whole log. A missing
// or empty log yields a zero Summary.
func (s *CSVStore) Aggregate(target string) (domain.Summary, error) {
	answers, err := s.ReadAnswers(target)
	if err != nil {
		return domain.Summary{}, err
	}
	var sum domain.Summary
	for _, a := range answers {
		sum.Add(a)
	}
	return sum, nil
}

// ReadAnswers returns every well-formed record of the log in file order.
// Garbled records, including a final record torn by a crash, are skipped with
// a warning so the affected problems are solved again.
func (s *CSVStore) ReadAnswers(target string) ([]domain.Answer, error) {
	f, err := os.Open(target) //nolint:gosec // operator-supplied path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open result log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat result log: %w", err)
	}
	end, err := completeLength(f, info.Size())
	if err != nil {
		return nil, err
	}
	if end < info.Size() {
		s.logger.Warn("ignoring torn record at end of result log",
			"path", target, "offset", end, "bytes", info.Size()-end)
	}

	r := csv.NewReader(&bomSkipper{r: io.NewSectionReader(f, 0, end)})
	r.FieldsPerRecord = -1

	var (
		cols    map[string]int
		answers []domain.Answer
	)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				s.logger.Warn("skipping garbled result row", "path", target, "line", perr.StartLine, "error", perr.Err)
				continue
			}
			return nil, fmt.Errorf("failed to read result log: %w", err)
		}

		if cols == nil {
			if cols, err = headerIndex(row); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrCorruptLog, target, err)
			}
			continue
		}

		a, err := parseAnswer(row, cols)
		if err != nil {
			line, _ := r.FieldPos(0)
			s.logger.Warn("skipping unreadable result row", "path", target, "line", line, "error", err)
			continue
		}
		answers = append(answers, a)
	}
	return answers, nil
}

func headerIndex(row []string) (map[string]int, error) {
	cols := make(map[string]int, len(row))
	for i, name := range row {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range Header {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func parseAnswer(row []string, cols map[string]int) (domain.Answer, error) {
	if len(row) < len(Header) {
		return domain.Answer{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(row))
	}

	ints := make(map[string]int, 5)
	for _, name := range []string{ColProblemID, ColScore, ColPredicted, ColActual, ColEarnedScore} {
		v, err := strconv.Atoi(strings.TrimSpace(row[cols[name]]))
		if err != nil {
			return domain.Answer{}, fmt.Errorf("column %s: %w", name, err)
		}
		ints[name] = v
	}

	correct, err := parseBool(row[cols[ColIsCorrect]])
	if err != nil {
		return domain.Answer{}, fmt.Errorf("column %s: %w", ColIsCorrect, err)
	}

	return domain.Answer{
		ProblemID: ints[ColProblemID],
		Predicted: ints[ColPredicted],
		Actual:    ints[ColActual],
		IsCorrect: correct,
		Reasoning: row[cols[ColReasoning]],
		Score:     ints[ColScore],
	}, nil
}

// parseBool accepts the True/False spelling written by this package as well
// as the forms understood by strconv.ParseBool.
func parseBool(s string) (bool, error) {
	return strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
}

func answerRecord(a domain.Answer) []string {
	correct := "False"
	if a.IsCorrect {
		correct = "True"
	}
	return []string{
		strconv.Itoa(a.ProblemID),
		strconv.Itoa(a.Score),
		strconv.Itoa(a.Predicted),
		strconv.Itoa(a.Actual),
		correct,
		strconv.Itoa(a.EarnedScore()),
		a.Reasoning,
	}
}

func encodeRecord(rec []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(rec); err != nil {
		return nil, fmt.Errorf("failed to encode result record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode result record: %w", err)
	}
	return buf.Bytes(), nil
}

func syncAndClose(f *os.File) error {
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync result log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close result log: %w", err)
	}
	return nil
}

// bomSkipper drops a UTF-8 byte order mark at the start of the stream.
type bomSkipper struct {
	r       io.Reader
	checked bool
	pending []byte
}

func (b *bomSkipper) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, head)
		head = head[:n]
		if !bytes.Equal(head, utf8BOM) {
			b.pending = head
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return 0, err
		}
	}
	if len(b.pending) > 0 {
		n := copy(p, b.pending)
		b.pending = b.pending[n:]
		return n, nil
	}
	return b.r.Read(p)
}
