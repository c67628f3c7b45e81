package devices

import "time"

// ===== Requests =====
// フォーム送信（application/x-www-form-urlencoded）と JSON の両方を受ける

// CreateDeviceRequest: POST /devices
type CreateDeviceRequest struct {
	Name         string  `form:"name" json:"name" binding:"required"`
	SerialNumber *string `form:"serial_number" json:"serial_number,omitempty"`
	Description  *string `form:"description" json:"description,omitempty"`
	Status       string  `form:"status" json:"status,omitempty" binding:"omitempty,oneof=checked_out checked_in broken missing"`
	Condition    string  `form:"condition" json:"condition,omitempty" binding:"omitempty,oneof=excellent scratched broken missing"`
}

// UpdateDeviceRequest: PUT /devices/:id, POST /devices/:id/edit
// nil のフィールドは変更しない
type UpdateDeviceRequest struct {
	Name         *string `form:"name" json:"name,omitempty"`
	SerialNumber *string `form:"serial_number" json:"serial_number,omitempty"`
	Description  *string `form:"description" json:"description,omitempty"`
	Status       *string `form:"status" json:"status,omitempty" binding:"omitempty,oneof=checked_out checked_in broken missing"`
	Condition    *string `form:"condition" json:"condition,omitempty" binding:"omitempty,oneof=excellent scratched broken missing"`
}

// CheckoutRequest: POST /devices/:id/checkout, /checkout/confirm
type CheckoutRequest struct {
	// 被験者ID（数字）またはユーザー名／メールアドレス
	Lendee string `form:"lendee" json:"lendee"`
}

// CheckinRequest: POST /devices/:id/checkin
type CheckinRequest struct {
	Condition string `form:"condition" json:"condition" binding:"required,oneof=excellent scratched broken missing"`
	Comment   string `form:"comment" json:"comment"`
}

// ===== Responses =====

type LendeeResponse struct {
	LendeeID int64  `json:"lendee_id"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
}

type LenderResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type DeviceResponse struct {
	DeviceID       int64           `json:"device_id"`
	Name           string          `json:"name"`
	SerialNumber   *string         `json:"serial_number,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Status         Status          `json:"status"`
	StatusLabel    string          `json:"status_label"`
	Condition      Condition       `json:"condition"`
	ConditionLabel string          `json:"condition_label"`
	Lendee         *LendeeResponse `json:"lendee,omitempty"`
	Lender         *LenderResponse `json:"lender,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type DeviceListResponse struct {
	Items      []DeviceResponse `json:"items"`
	Total      int64            `json:"total"`
	NextOffset *int             `json:"next_offset,omitempty"`
}

// CheckoutResponse: 貸出先の解決結果。CreatedSubject は被験者の場合のみ返す
type CheckoutResponse struct {
	Success        bool   `json:"success"`
	Name           string `json:"name"`
	CreatedSubject *bool  `json:"created_subject,omitempty"`
}

type CommentResponse struct {
	CommentULID string    `json:"comment_ulid"`
	Text        string    `json:"text"`
	AuthorID    *int64    `json:"author_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CommentListResponse struct {
	Items []CommentResponse `json:"items"`
}

// DeviceSnapshot は device_revisions.snapshot に保存する JSON
type DeviceSnapshot struct {
	DeviceID     int64     `json:"device_id"`
	Name         string    `json:"name"`
	SerialNumber *string   `json:"serial_number,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Status       Status    `json:"status"`
	Condition    Condition `json:"condition"`
	LendeeID     *int64    `json:"lendee_id,omitempty"`
	LenderID     *int64    `json:"lender_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RevisionResponse struct {
	RevisionULID string         `json:"revision_ulid"`
	Action       Action         `json:"action"`
	Snapshot     DeviceSnapshot `json:"snapshot"`
	ActorID      *int64         `json:"actor_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type RevisionListResponse struct {
	Items []RevisionResponse `json:"items"`
}
