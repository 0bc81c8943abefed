package validation

import (
	"net/mail"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var nicknameRe = regexp.MustCompile(`^[a-zA-Z0-9가-힣_]{2,30}$`)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func NormalizeNickname(nickname string) string {
	return strings.TrimSpace(nickname)
}

func ValidateNickname(nickname string) bool {
	return nicknameRe.MatchString(NormalizeNickname(nickname))
}

func ValidateTitle(title string) bool {
	t := strings.TrimSpace(title)
	return t != "" && len(t) <= 200
}

func PasswordMinLength() int {
	minStr := os.Getenv("PASSWORD_MIN_LENGTH")
	if minStr == "" {
		return 10
	}
	min, err := strconv.Atoi(minStr)
	if err != nil || min < 8 {
		return 10
	}
	return min
}

func ValidatePassword(password string) bool {
	return len(password) >= PasswordMinLength()
}

func MaxPostLength() int {
	maxStr := os.Getenv("MAX_POST_LENGTH")
	if maxStr == "" {
		return 10000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 10000
	}
	return max
}
