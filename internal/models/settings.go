package models

import (
	"encoding/json"

	"taskboard/internal/docstore"
)

type NotificationSettings struct {
	Email        bool `json:"email"`
	Push         bool `json:"push"`
	TaskAssigned bool `json:"taskAssigned"`
	TaskDue      bool `json:"taskDue"`
	WeeklyDigest bool `json:"weeklyDigest"`
}

type AppearanceSettings struct {
	Theme       string `json:"theme" validate:"omitempty,oneof=light dark"`
	Language    string `json:"language" validate:"omitempty,max=16"`
	CompactMode bool   `json:"compactMode"`
}

type ProductivitySettings struct {
	WorkdayStart string `json:"workdayStart" validate:"omitempty,datetime=15:04"`
	WorkdayEnd   string `json:"workdayEnd" validate:"omitempty,datetime=15:04"`
	FocusMode    bool   `json:"focusMode"`
	DailyGoal    int    `json:"dailyGoal" validate:"min=0,max=100"`
}

type PrivacySettings struct {
	ShowEmail      bool `json:"showEmail"`
	ShowActivity   bool `json:"showActivity"`
	ProfileVisible bool `json:"profileVisible"`
}

// UserSettings is stored in userSettings under the account id.
type UserSettings struct {
	Notifications NotificationSettings `json:"notifications"`
	Appearance    AppearanceSettings   `json:"appearance"`
	Productivity  ProductivitySettings `json:"productivity"`
	Privacy       PrivacySettings      `json:"privacy"`
	Version       int64                `json:"version"`
}

func DefaultUserSettings() UserSettings {
	return UserSettings{
		Notifications: NotificationSettings{Email: true, Push: true, TaskAssigned: true, TaskDue: true},
		Appearance:    AppearanceSettings{Theme: "light", Language: "en"},
		Productivity:  ProductivitySettings{WorkdayStart: "09:00", WorkdayEnd: "17:00", DailyGoal: 5},
		Privacy:       PrivacySettings{ShowEmail: true, ShowActivity: true, ProfileVisible: true},
	}
}

// SettingsFromDocument overlays the stored values on the defaults. Sections
// that do not decode keep their defaults.
func SettingsFromDocument(doc docstore.Document) UserSettings {
	s := DefaultUserSettings()
	s.Version = doc.Version
	decodeSection(doc.Data["notifications"], &s.Notifications)
	decodeSection(doc.Data["appearance"], &s.Appearance)
	decodeSection(doc.Data["productivity"], &s.Productivity)
	decodeSection(doc.Data["privacy"], &s.Privacy)
	if s.Appearance.Theme != "light" && s.Appearance.Theme != "dark" {
		s.Appearance.Theme = "light"
	}
	return s
}

func decodeSection(raw any, dst any) {
	if raw == nil {
		return
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return
	}
	// decode into a copy so a half-decoded section never leaks out
	tmp, _ := json.Marshal(dst)
	if err := json.Unmarshal(b, dst); err != nil {
		_ = json.Unmarshal(tmp, dst)
	}
}

// Fields returns the document form of the settings, without Version.
func (s UserSettings) Fields() map[string]any {
	b, _ := json.Marshal(s)
	out := map[string]any{}
	_ = json.Unmarshal(b, &out)
	delete(out, "version")
	return out
}
