package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"restoran-pos/internal/models"
)

var (
	ErrEmailTaken   = errors.New("email is already registered")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

const (
	minPasswordLength = 8
	passwordAlphabet  = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	generatedLength   = 12
)

// HashCost is the bcrypt cost for new password hashes.
var HashCost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// GeneratePassword returns a random password without look-alike characters.
func GeneratePassword() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < generatedLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// GenerateStaffCode picks an unused STF#### code.
func GenerateStaffCode(tx *gorm.DB) (string, error) {
	for i := 0; i < 10; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("STF%04d", n.Int64())

		var count int64
		if err := tx.Model(&models.Staff{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("no free staff code, pass one explicitly")
}

// CreateAccount inserts the auth principal and its staff mapping. Call it
// inside the transaction that creates the staff row.
func CreateAccount(tx *gorm.DB, email, password string, staffID uuid.UUID) (*models.AuthUser, error) {
	email = NormalizeEmail(email)
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	var count int64
	if err := tx.Model(&models.AuthUser{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.AuthUser{Email: email, PasswordHash: hash}
	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	if err := tx.Create(&models.AuthStaffMapping{AuthUserID: user.ID, StaffID: staffID}).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// AccountError maps account creation errors to HTTP errors.
func AccountError(err error) error {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return fiberError(fiber.StatusConflict, err)
	case errors.Is(err, ErrWeakPassword):
		return fiberError(fiber.StatusBadRequest, err)
	}
	return err
}
