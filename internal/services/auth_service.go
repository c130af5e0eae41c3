package services

import (
	"fmt"
	"math/rand"

	"forecast-market/internal/auth"
	"forecast-market/internal/models"

	"gorm.io/gorm"
)

// AuthService handles wallet-based login
type AuthService struct {
	db *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// WalletLogin finds or creates the user for a wallet address and returns a
// session token.
func (s *AuthService) WalletLogin(walletAddress string) (*models.User, string, error) {
	if walletAddress == "" {
		return nil, "", fmt.Errorf("wallet address is required")
	}

	var user models.User
	err := s.db.Where("wallet_address = ?", walletAddress).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{
			WalletAddress: walletAddress,
			Nickname:      generateNickname(walletAddress),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, "", fmt.Errorf("failed to create user: %w", err)
		}
	} else if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, user.WalletAddress)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

var nicknameAdjectives = []string{
	"swift", "bold", "quiet", "lucky", "sharp", "calm", "brave", "keen",
}

var nicknameNouns = []string{
	"otter", "falcon", "badger", "lynx", "raven", "marmot", "heron", "fox",
}

// generateNickname builds a readable default nickname, suffixed with part of
// the wallet address to keep it unique.
func generateNickname(walletAddress string) string {
	adjective := nicknameAdjectives[rand.Intn(len(nicknameAdjectives))]
	noun := nicknameNouns[rand.Intn(len(nicknameNouns))]

	suffix := walletAddress
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}

	return fmt.Sprintf("%s-%s-%s", adjective, noun, suffix)
}
