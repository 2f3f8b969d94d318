package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ideaboard/internal/repository"
)

var (
	ideaCSVHeader    = []string{"id", "title", "content", "tags", "stage", "is_pinned", "is_off_topic", "vote_count", "created_at", "author_email"}
	commentCSVHeader = []string{"id", "idea_id", "content", "is_pinned", "is_deleted", "created_at", "author_email"}
)

// ExportService writes the board's content as CSV for administrators.
type ExportService struct {
	ideas    repository.IdeaRepository
	comments repository.CommentRepository
}

// NewExportService returns a new ExportService.
func NewExportService(ideas repository.IdeaRepository, comments repository.CommentRepository) *ExportService {
	return &ExportService{ideas: ideas, comments: comments}
}

// ExportIdeasCSV writes every idea, including hidden ones, to w.
func (s *ExportService) ExportIdeasCSV(ctx context.Context, actor Actor, w io.Writer) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	ideas, err := s.ideas.ListAll(ctx)
	if err != nil {
		return translate(err, "Idea", 0)
	}

	cw := newCSVWriter(w)
	if err := cw.Write(ideaCSVHeader); err != nil {
		return translate(err, "Idea", 0)
	}
	for _, i := range ideas {
		record := []string{
			strconv.FormatUint(uint64(i.ID), 10),
			csvSafe(i.Title),
			csvSafe(i.Content),
			csvSafe(i.Tags),
			string(i.Stage),
			strconv.FormatBool(i.IsPinned),
			strconv.FormatBool(i.IsOffTopic),
			strconv.Itoa(i.VoteCount),
			csvTime(i.CreatedAt),
			csvSafe(i.AuthorEmail),
		}
		if err := cw.Write(record); err != nil {
			return translate(fmt.Errorf("write idea %d: %w", i.ID, err), "Idea", i.ID)
		}
	}
	cw.Flush()
	return translate(cw.Error(), "Idea", 0)
}

// ExportCommentsCSV writes every comment, including soft-deleted ones, to w.
func (s *ExportService) ExportCommentsCSV(ctx context.Context, actor Actor, w io.Writer) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	comments, err := s.comments.ListAll(ctx)
	if err != nil {
		return translate(err, "Comment", 0)
	}

	cw := newCSVWriter(w)
	if err := cw.Write(commentCSVHeader); err != nil {
		return translate(err, "Comment", 0)
	}
	for _, c := range comments {
		record := []string{
			strconv.FormatUint(uint64(c.ID), 10),
			strconv.FormatUint(uint64(c.IdeaID), 10),
			csvSafe(c.Content),
			strconv.FormatBool(c.IsPinned),
			strconv.FormatBool(c.IsDeleted),
			csvTime(c.CreatedAt),
			csvSafe(c.AuthorEmail),
		}
		if err := cw.Write(record); err != nil {
			return translate(fmt.Errorf("write comment %d: %w", c.ID, err), "Comment", c.ID)
		}
	}
	cw.Flush()
	return translate(cw.Error(), "Comment", 0)
}

func newCSVWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return cw
}

func csvTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// csvSafe neutralizes values a spreadsheet would evaluate as a formula.
func csvSafe(v string) string {
	trimmed := strings.TrimLeft(v, " \t")
	if trimmed == "" {
		return v
	}
	switch trimmed[0] {
	case '=', '+', '-', '@':
		return "'" + v
	}
	return v
}
