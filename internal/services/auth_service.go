package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"trade-router/internal/models"
)

// AuthService handles authentication business logic
type AuthService struct {
	db              *gorm.DB
	referralService *ReferralService
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB, referralService *ReferralService) *AuthService {
	return &AuthService{
		db:              db,
		referralService: referralService,
	}
}

// ProcessWalletLogin finds or creates a user by wallet address. A presented
// invite code is processed only at registration time; an existing user's
// referrer is never overwritten.
func (s *AuthService) ProcessWalletLogin(walletAddress string, inviteCode string) (*models.User, error) {
	var user models.User

	result := s.db.Where("wallet_address = ?", walletAddress).First(&user)

	if result.Error == gorm.ErrRecordNotFound {
		// New user — create account
		user = models.User{
			WalletAddress: walletAddress,
		}

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		if inviteCode != "" {
			if err := s.referralService.ProcessReferral(user.ID, inviteCode); err != nil {
				// Registration succeeds regardless; the referral is best effort.
				log.Printf("Warning: failed to process referral for user %d: %v", user.ID, err)
			}
		}

		log.Printf("New user created: wallet=%s (ID: %d)", walletAddress, user.ID)
	} else if result.Error != nil {
		return nil, fmt.Errorf("database error: %w", result.Error)
	} else {
		log.Printf("User logged in: wallet=%s (ID: %d)", walletAddress, user.ID)
	}

	return &user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
