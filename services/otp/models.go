package otp

import (
	"errors"
	"strings"
	"time"
)

// ChallengeID is the primary key of the only challenge row that ever exists.
const ChallengeID = "current"

var ErrUnsupportedMethod = errors.New("unsupported delivery method")

type Method string

const (
	MethodEmail Method = "email"
	MethodSMS   Method = "sms"
)

func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case MethodEmail:
		return MethodEmail, nil
	case MethodSMS:
		return MethodSMS, nil
	default:
		return "", ErrUnsupportedMethod
	}
}

type Challenge struct {
	ID          string     `json:"-" gorm:"primaryKey;size:16"`
	Code        string     `json:"code" gorm:"size:4;not null"`
	Method      Method     `json:"method" gorm:"size:8;not null"`
	Destination string     `json:"destination" gorm:"size:255;not null"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"not null"`
	Used        bool       `json:"used" gorm:"not null;default:false"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}

func (Challenge) TableName() string {
	return "otp_challenges"
}

func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsValid reports whether the challenge can still be consumed.
func (c *Challenge) IsValid(now time.Time) bool {
	return !c.Used && !c.IsExpired(now)
}

// Stats is a display projection of the stored challenge. It never carries the code.
type Stats struct {
	Exists        bool   `json:"exists"`
	Used          bool   `json:"used"`
	Expired       bool   `json:"expired"`
	TimeRemaining int    `json:"time_remaining"`
	Method        Method `json:"method"`
	Destination   string `json:"destination"`
}
