package validation

import (
	"strings"
	"unicode/utf8"

	"ideaboard/internal/models"
)

// Content limits, counted in characters after trimming.
const (
	MaxTitleLen   = 100
	MaxContentLen = 500
	MaxTagsLen    = 200
	MaxCommentLen = 500
)

// Validation sub-codes surfaced in ErrorResponse.field.
const (
	FieldEmptyTitle      = "empty_title"
	FieldTitleTooLong    = "title_too_long"
	FieldEmptyContent    = "empty_content"
	FieldContentTooLong  = "content_too_long"
	FieldTagsTooLong     = "tags_too_long"
	FieldEmptyComment    = "empty_comment"
	FieldCommentTooLong  = "comment_too_long"
	FieldProfanity       = "profanity"
	FieldInvalidName     = "invalid_name"
	FieldInvalidEmail    = "invalid_email"
	FieldPasswordTooWeak = "password_too_short"
)

// ProfanityMessage is shown whenever the content policy rejects a submission.
const ProfanityMessage = "Your submission contains inappropriate language. Please revise and try again."

// ErrProfanity matches any profanity rejection via errors.Is.
var ErrProfanity = &models.AppError{Code: models.CodeValidation, Field: FieldProfanity}

// ValidateIdea checks an idea's title, description and tags. Inputs are
// expected to be trimmed by the caller; they are trimmed again here.
func ValidateIdea(title, content, tags string) error {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	tags = strings.TrimSpace(tags)

	switch {
	case title == "":
		return models.NewFieldValidationError(FieldEmptyTitle, "Idea title cannot be empty")
	case utf8.RuneCountInString(title) > MaxTitleLen:
		return models.NewFieldValidationError(FieldTitleTooLong, "Idea title cannot exceed 100 characters")
	case content == "":
		return models.NewFieldValidationError(FieldEmptyContent, "Idea description cannot be empty")
	case utf8.RuneCountInString(content) > MaxContentLen:
		return models.NewFieldValidationError(FieldContentTooLong, "Idea description cannot exceed 500 characters")
	case utf8.RuneCountInString(tags) > MaxTagsLen:
		return models.NewFieldValidationError(FieldTagsTooLong, "Tags cannot exceed 200 characters")
	}

	if ContainsProfanity(title) || ContainsProfanity(content) || ContainsProfanity(tags) {
		return models.NewFieldValidationError(FieldProfanity, ProfanityMessage)
	}
	return nil
}

// ValidateComment checks a comment body.
func ValidateComment(content string) error {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return models.NewFieldValidationError(FieldEmptyComment, "Comment cannot be empty")
	case utf8.RuneCountInString(content) > MaxCommentLen:
		return models.NewFieldValidationError(FieldCommentTooLong, "Comment cannot exceed 500 characters")
	case ContainsProfanity(content):
		return models.NewFieldValidationError(FieldProfanity, ProfanityMessage)
	}
	return nil
}

// NormalizeTags trims each comma-separated tag and drops empty entries. The
// result is never longer than the input.
func NormalizeTags(tags string) string {
	parts := strings.Split(tags, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
