package model

// Preference is the fine-grained lifestyle profile used for roommate matching.
// Empty fields mean "not stated".
type Preference struct {
	ID               int64  `gorm:"primaryKey" json:"id"`
	OccupantID       int64  `gorm:"uniqueIndex;not null" json:"occupantId"`
	StudyTime        string `gorm:"size:20" json:"studyTime"`
	SleepTime        string `gorm:"size:20" json:"sleepTime"`
	NoiseLevel       string `gorm:"size:20" json:"noiseLevel"`
	Cleanliness      string `gorm:"size:20" json:"cleanliness"`
	Interests        string `gorm:"size:200" json:"interests"`
	GenderPreference string `gorm:"size:15" json:"genderPreference"`
}
