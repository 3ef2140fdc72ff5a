package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ContactRole is the position a contact holds at a school.
type ContactRole string

const (
	RoleHeadteacher     ContactRole = "headteacher"
	RoleDeputyHead      ContactRole = "deputy_head"
	RoleAssistantHead   ContactRole = "assistant_head"
	RoleBusinessManager ContactRole = "business_manager"
	RoleSENCO           ContactRole = "senco"
	RoleUnknown         ContactRole = "unknown"
)

// Contact is a named person at a school.
type Contact struct {
	FullName   string      `json:"full_name"`
	Role       ContactRole `json:"role"`
	Title      string      `json:"title,omitempty"`
	FirstName  string      `json:"first_name,omitempty"`
	LastName   string      `json:"last_name,omitempty"`
	Email      string      `json:"email,omitempty"`
	Phone      string      `json:"phone,omitempty"`
	Confidence float64     `json:"confidence_score"`
}

// NewContact builds a contact with a normalized phone number. An empty role
// defaults to RoleUnknown.
func NewContact(fullName string, role ContactRole, phone string, confidence float64) Contact {
	if role == "" {
		role = RoleUnknown
	}
	return Contact{
		FullName:   strings.TrimSpace(fullName),
		Role:       role,
		Phone:      NormalizePhone(phone),
		Confidence: confidence,
	}
}

// Validate checks the contact invariants.
func (c Contact) Validate() error {
	if strings.TrimSpace(c.FullName) == "" {
		return eris.New("contact: full name is required")
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return eris.Errorf("contact: confidence %.2f outside [0,1]", c.Confidence)
	}
	return nil
}

// NormalizePhone strips the ".0" left by float conversion of numeric phone
// columns and groups ten-digit London numbers as "020 XXXX XXXX".
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimSuffix(phone, ".0")

	if len(phone) == 10 {
		switch {
		case strings.HasPrefix(phone, "20"):
			phone = "020 " + phone[2:6] + " " + phone[6:]
		case strings.HasPrefix(phone, "2"):
			phone = "020 " + phone[1:5] + " " + phone[5:]
		}
	}
	return phone
}
