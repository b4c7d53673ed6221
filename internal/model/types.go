package model

type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex" json:"username"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"createdAt"`
}

// Message timestamps are unix milliseconds. DeliveredAt stays nil until the
// message reaches a live connection of the recipient; ReadAt stays nil until
// the recipient has the conversation open. The deleted flags hide the record
// from one side without removing it while the other side still retains it.
type Message struct {
	ID                string `gorm:"primaryKey" json:"id"`
	SenderUsername    string `gorm:"index" json:"senderUsername"`
	RecipientUsername string `gorm:"index" json:"recipientUsername"`
	Content           string `json:"content"`
	CreatedAt         int64  `json:"createdAt"`
	DeliveredAt       *int64 `json:"deliveredAt"`
	ReadAt            *int64 `json:"readAt"`
	SenderDeleted     bool   `json:"-"`
	RecipientDeleted  bool   `json:"-"`
}
