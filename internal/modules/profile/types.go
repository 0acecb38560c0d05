package profile

type updateProficiencyDTO struct {
	Proficiency string `json:"proficiency" binding:"required,oneof=A1 A2 B1 B2 C1 C2"`
}

type profileView struct {
	UserID           string   `json:"userId"`
	Proficiency      string   `json:"proficiency"`
	NativeLanguage   string   `json:"nativeLanguage,omitempty"`
	RecentErrors     []string `json:"recentErrors"`
	SessionSummaries []string `json:"sessionSummaries"`
	TouchedAt        string   `json:"touchedAt"`
}
