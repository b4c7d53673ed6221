package store

import (
	"errors"

	"gorm.io/gorm"

	"heartlink-server/internal/model"
)

func (s *Store) CreateMessage(msg *model.Message) error {
	return s.db.Create(msg).Error
}

// MarkRead sets the read timestamp, once. A message that is already read
// keeps its original timestamp.
func (s *Store) MarkRead(id string, atMillis int64) error {
	return s.db.Model(&model.Message{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", atMillis).Error
}

func (s *Store) MarkDelivered(id string, atMillis int64) error {
	return s.db.Model(&model.Message{}).
		Where("id = ? AND delivered_at IS NULL", id).
		Update("delivered_at", atMillis).Error
}

// Thread returns the conversation between viewer and other, oldest first,
// excluding messages the viewer soft-deleted.
func (s *Store) Thread(viewer, other string) ([]model.Message, error) {
	msgs := make([]model.Message, 0)
	err := s.db.
		Where("sender_username = ? AND recipient_username = ? AND sender_deleted = ?", viewer, other, false).
		Or("sender_username = ? AND recipient_username = ? AND recipient_deleted = ?", other, viewer, false).
		Order("created_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// UnreadFrom returns the unread messages addressed to recipient within the
// conversation with sender, oldest first.
func (s *Store) UnreadFrom(recipient, sender string) ([]model.Message, error) {
	msgs := make([]model.Message, 0)
	err := s.db.
		Where("recipient_username = ? AND sender_username = ? AND read_at IS NULL AND recipient_deleted = ?",
			recipient, sender, false).
		Order("created_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteMessageFor soft-deletes the message on the caller's side. The row is
// physically removed only once both sides have deleted it.
func (s *Store) DeleteMessageFor(id, username string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var msg model.Message
		err := tx.Where("id = ?", id).First(&msg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		if err != nil {
			return err
		}

		switch username {
		case msg.SenderUsername:
			msg.SenderDeleted = true
		case msg.RecipientUsername:
			msg.RecipientDeleted = true
		default:
			return ErrNotParticipant
		}

		if msg.SenderDeleted && msg.RecipientDeleted {
			return tx.Delete(&model.Message{}, "id = ?", id).Error
		}
		return tx.Model(&model.Message{}).Where("id = ?", id).
			Updates(map[string]any{
				"sender_deleted":    msg.SenderDeleted,
				"recipient_deleted": msg.RecipientDeleted,
			}).Error
	})
}
