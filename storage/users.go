package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/SoftwareDeveloper2002/iskolardev-node/models"

	"gorm.io/gorm"
)

// ErrUserNotFound is returned when no user row exists for a uid.
var ErrUserNotFound = errors.New("user not found")

// Users reads the role records the enrollment flow maintains.
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// GetRole performs a single point lookup and returns the stored role
// lower-cased. No caching: a role change must take effect on the very next
// request.
func (u *Users) GetRole(ctx context.Context, uid string) (string, error) {
	var user models.User
	err := u.db.WithContext(ctx).First(&user, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}

	role := user.Role
	if role == "" {
		role = "unknown"
	}
	return strings.ToLower(role), nil
}
