package repository

import (
	"context"
	"errors"
	"fmt"

	"ideaboard/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines the gateway operations on users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByCASSubject(ctx context.Context, subject string) (*models.User, error)
	LinkCASSubject(ctx context.Context, id uint, subject string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	UpdateRole(ctx context.Context, id uint, role models.Role) error
	OverrideRole(ctx context.Context, id uint, role models.Role) error
	SetPasswordHash(ctx context.Context, email, hash string) error
	Delete(ctx context.Context, id uint) error
	CreateAdminIfNone(ctx context.Context, admin *models.User) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByCASSubject(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(cas_subject) = LOWER(?)", subject).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LinkCASSubject attaches a CAS subject to a user that has none yet.
func (r *userRepository) LinkCASSubject(ctx context.Context, id uint, subject string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND cas_subject IS NULL", id).
		Update("cas_subject", subject)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, ErrDuplicate
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("created_on DESC").Order("id DESC").Find(&users).Error
	return users, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (r *userRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

func (r *userRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("role = ?", role).Order("id").Find(&users).Error
	return users, err
}

// lockedRole reads a user's role under a row lock.
func lockedRole(tx *gorm.DB, id uint) (models.Role, error) {
	var user models.User
	if err := lockForUpdate(tx).Select("id", "role").First(&user, id).Error; err != nil {
		return 0, err
	}
	return user.Role, nil
}

// UpdateRole changes a user's role. Admin targets are immutable.
func (r *userRepository) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockedRole(tx, id)
		if err != nil {
			return err
		}
		if current.AtLeast(models.RoleAdmin) {
			return models.ErrRoleImmutable
		}
		return tx.Model(&models.User{}).Where("id = ?", id).Update("role", role).Error
	})
}

// OverrideRole sets any user's role, admins included. It is reserved for
// operator tooling and refuses to demote the last administrator.
func (r *userRepository) OverrideRole(ctx context.Context, id uint, role models.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockedRole(tx, id)
		if err != nil {
			return err
		}
		if current.AtLeast(models.RoleAdmin) && !role.AtLeast(models.RoleAdmin) {
			var admins int64
			if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}
		return tx.Model(&models.User{}).Where("id = ?", id).Update("role", role).Error
	})
}

func (r *userRepository) SetPasswordHash(ctx context.Context, email, hash string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = LOWER(?)", email).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a non-admin user with everything they own. Vote counters of
// ideas the user voted on are decremented in the same transaction.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockedRole(tx, id)
		if err != nil {
			return err
		}
		if current.AtLeast(models.RoleAdmin) {
			return models.ErrAdminProtected
		}

		if _, err := deleteIdeasWhere(tx, "user_id = ?", id); err != nil {
			return err
		}

		var votedIdeas []uint
		if err := tx.Model(&models.Vote{}).Where("user_id = ?", id).Pluck("idea_id", &votedIdeas).Error; err != nil {
			return err
		}
		if len(votedIdeas) > 0 {
			if err := tx.Model(&models.Idea{}).
				Where("id IN ? AND vote_count > 0", votedIdeas).
				UpdateColumn("vote_count", gorm.Expr("vote_count - 1")).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}

		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("user_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if err := deleteFlagsFor(tx, models.TargetComment, commentIDs); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Flag{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, id).Error
	})
}

// CreateAdminIfNone inserts admin only when no administrator exists.
func (r *userRepository) CreateAdminIfNone(ctx context.Context, admin *models.User) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		admin.Role = models.RoleAdmin
		err := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(admin).Error
		})
		if err != nil {
			if isUniqueViolation(err) {
				// An account already holds this email: promote it instead.
				res := tx.Model(&models.User{}).
					Where("LOWER(email) = LOWER(?)", admin.Email).
					Updates(map[string]interface{}{"role": models.RoleAdmin, "password_hash": admin.PasswordHash})
				if res.Error != nil {
					return fmt.Errorf("promote existing account: %w", res.Error)
				}
				if res.RowsAffected == 0 {
					return errors.New("admin bootstrap conflict")
				}
				created = true
				return nil
			}
			return err
		}
		created = true
		return nil
	})
	return created, err
}
