// Package seed fills a database with demo users, ideas, votes, comments and
// flags. It is intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ideaboard/internal/auth"
	"ideaboard/internal/models"
	"ideaboard/internal/repository"
	"ideaboard/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

var demoTags = []string{"network", "vpn", "printing", "email", "security", "onboarding", "hardware", "wifi", "helpdesk", "licensing", "backup", "sso"}

// Options sizes a seeding run.
type Options struct {
	Users      int
	Ideas      int
	Moderators int
	MaxDays    int
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Ideas    int
	Votes    int
	Comments int
	Flags    int
}

// Seeder writes demo data through the persistence gateway so counters and
// constraints hold exactly as they do for real traffic.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	ideas    repository.IdeaRepository
	votes    repository.VoteRepository
	comments repository.CommentRepository
	flags    repository.FlagRepository
	hasher   auth.PasswordHasher
	faker    *gofakeit.Faker
}

// NewSeeder creates a Seeder. A nil hasher uses bcrypt at its default cost;
// a non-zero seed makes runs reproducible.
func NewSeeder(db *gorm.DB, hasher auth.PasswordHasher, seed int64) *Seeder {
	if hasher == nil {
		hasher = auth.NewBcryptHasher()
	}
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		ideas:    repository.NewIdeaRepository(db),
		votes:    repository.NewVoteRepository(db),
		comments: repository.NewCommentRepository(db),
		flags:    repository.NewFlagRepository(db),
		hasher:   hasher,
		faker:    gofakeit.New(seed),
	}
}

// ClearAll removes all board content and every non-admin account.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Flag{}, &models.Comment{}, &models.Vote{}, &models.Idea{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return tx.Where("role < ?", models.RoleAdmin).Delete(&models.User{}).Error
	})
}

// Run creates users and then engagement between them.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}

	hash, err := s.hasher.Hash(DemoPassword)
	if err != nil {
		return sum, err
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		role := models.RoleUser
		if i < opts.Moderators {
			role = models.RoleModerator
		}
		u := &models.User{
			Email:        strings.ToLower(fmt.Sprintf("%s.%d@%s", s.faker.Username(), i, s.faker.DomainName())),
			Name:         s.faker.Name(),
			PasswordHash: hash,
			Role:         role,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return sum, fmt.Errorf("create user %d: %w", i, err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	for i := 0; i < opts.Ideas; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		idea := s.buildIdea(author, opts.MaxDays)
		if err := s.ideas.Create(ctx, idea); err != nil {
			return sum, fmt.Errorf("create idea %d: %w", i, err)
		}
		sum.Ideas++

		n, err := s.engage(ctx, idea, users)
		if err != nil {
			return sum, err
		}
		sum.Votes += n.Votes
		sum.Comments += n.Comments
		sum.Flags += n.Flags
	}

	slog.InfoContext(ctx, "seed complete",
		slog.Int("users", sum.Users),
		slog.Int("ideas", sum.Ideas),
		slog.Int("votes", sum.Votes),
		slog.Int("comments", sum.Comments),
		slog.Int("flags", sum.Flags),
	)
	return sum, nil
}

func (s *Seeder) buildIdea(author *models.User, maxDays int) *models.Idea {
	title, content, tags := s.ideaText()
	age := time.Duration(s.faker.Number(0, maxDays*24)) * time.Hour
	stage := models.Stages[s.faker.Number(0, len(models.Stages)-1)]
	return &models.Idea{
		UserID:          author.ID,
		Title:           title,
		Content:         content,
		Tags:            tags,
		Stage:           stage,
		IsPublic:        true,
		CommentsEnabled: s.faker.Number(1, 10) > 1,
		CreatedAt:       time.Now().UTC().Add(-age),
	}
}

// ideaText draws text until it passes the content policy.
func (s *Seeder) ideaText() (title, content, tags string) {
	for {
		title = strings.TrimSuffix(s.faker.HackerPhrase(), ".")
		content = s.faker.Sentence(s.faker.Number(12, 40))
		picked := make([]string, 0, 3)
		for j := s.faker.Number(1, 3); j > 0; j-- {
			picked = append(picked, demoTags[s.faker.Number(0, len(demoTags)-1)])
		}
		tags = validation.NormalizeTags(strings.Join(picked, ","))
		if validation.ValidateIdea(title, content, tags) == nil {
			return title, content, tags
		}
	}
}

func (s *Seeder) commentText() string {
	for {
		c := s.faker.Sentence(s.faker.Number(4, 20))
		if validation.ValidateComment(c) == nil {
			return c
		}
	}
}

func (s *Seeder) engage(ctx context.Context, idea *models.Idea, users []*models.User) (Summary, error) {
	var n Summary
	for _, u := range users {
		if s.faker.Number(1, 100) <= 30 {
			if _, err := s.votes.Toggle(ctx, idea.ID, u.ID); err != nil {
				return n, fmt.Errorf("vote on idea %d: %w", idea.ID, err)
			}
			n.Votes++
		}
		if idea.CommentsEnabled && s.faker.Number(1, 100) <= 10 {
			c := &models.Comment{IdeaID: idea.ID, UserID: u.ID, Content: s.commentText()}
			if err := s.comments.Create(ctx, c); err != nil {
				return n, fmt.Errorf("comment on idea %d: %w", idea.ID, err)
			}
			n.Comments++
		}
		if s.faker.Number(1, 100) <= 2 {
			created, err := s.flags.Create(ctx, &models.Flag{UserID: u.ID, TargetType: models.TargetIdea, TargetID: idea.ID})
			if err != nil {
				return n, fmt.Errorf("flag idea %d: %w", idea.ID, err)
			}
			if created {
				n.Flags++
			}
		}
	}
	return n, nil
}
