package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/agenda-api/pkg/caldate"
)

// Granularity selects a daily or weekly schedule view.
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

// ParseGranularity accepts day/daily and week/weekly; empty falls back to def.
func ParseGranularity(raw string, def Granularity) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return def, nil
	case "day", "daily":
		return GranularityDay, nil
	case "week", "weekly":
		return GranularityWeek, nil
	default:
		return "", fmt.Errorf("unknown view %q", raw)
	}
}

// SpanDays is the number of days one navigation step moves.
func (g Granularity) SpanDays() int {
	if g == GranularityWeek {
		return 7
	}
	return 1
}

// ViewWindow is the anchor date and granularity of a schedule view.
type ViewWindow struct {
	AnchorDate  caldate.Date `json:"anchor_date"`
	Granularity Granularity  `json:"granularity"`
}

// ResourceSelection is either every resource (zero value) or a single id.
type ResourceSelection struct {
	ResourceID int64 `json:"resource_id,omitempty"`
}

// AllResources selects every resource.
func AllResources() ResourceSelection { return ResourceSelection{} }

// SingleResource selects one resource.
func SingleResource(id int64) ResourceSelection { return ResourceSelection{ResourceID: id} }

// IsAll reports whether the selection covers every resource.
func (s ResourceSelection) IsAll() bool { return s.ResourceID == 0 }

func (s ResourceSelection) String() string {
	if s.IsAll() {
		return "all"
	}
	return strconv.FormatInt(s.ResourceID, 10)
}

// ParseResourceSelection reads "all", "" or a positive resource id.
func ParseResourceSelection(raw string) (ResourceSelection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return AllResources(), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return ResourceSelection{}, fmt.Errorf("invalid resource selection %q", raw)
	}
	return SingleResource(id), nil
}

// Session is the explicit identity a schedule view is scoped to.
type Session struct {
	UserID      string   `json:"user_id"`
	Role        UserRole `json:"role"`
	ResourceID  *int64   `json:"resource_id,omitempty"`
	AccessToken string   `json:"-"`
}

// SessionFromClaims builds a session from validated access-token claims.
func SessionFromClaims(claims *JWTClaims) Session {
	if claims == nil {
		return Session{}
	}
	return Session{UserID: claims.UserID, Role: claims.Role, ResourceID: claims.ResourceID}
}

// DefaultSelection scopes staff members to their own column.
func (s Session) DefaultSelection() ResourceSelection {
	if s.Role == RoleStaff && s.ResourceID != nil {
		return SingleResource(*s.ResourceID)
	}
	return AllResources()
}

// CanEdit reports whether the session may mutate appointments.
func (s Session) CanEdit() bool {
	return s.Role == RoleAdmin || s.Role == RoleScheduler
}
