package database

import (
	"time"

	"gorm.io/datatypes"

	"freelanceDesk/internal/lifecycle"
)

// Client 表示自由职业者的客户。
type Client struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	Company   *string   `gorm:"size:255" json:"company,omitempty"`
	Languages *string   `gorm:"size:255" json:"languages,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Project 表示客户委托的一个项目。
type Project struct {
	ID          uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID    uint             `gorm:"not null;index" json:"clientId"`
	Name        string           `gorm:"size:255;not null" json:"name"`
	Description *string          `gorm:"type:text" json:"description,omitempty"`
	Deadline    *time.Time       `json:"deadline,omitempty"`
	Amount      *float64         `json:"amount,omitempty"`
	Volume      *float64         `json:"volume,omitempty"`
	SourceLang  *string          `gorm:"size:32" json:"sourceLang,omitempty"`
	TargetLang  *string          `gorm:"size:32" json:"targetLang,omitempty"`
	Status      lifecycle.Status `gorm:"size:32;not null;default:'In Progress'" json:"status"`
	InvoiceSent bool             `gorm:"not null;default:false" json:"invoiceSent"`
	IsPaid      bool             `gorm:"not null;default:false" json:"isPaid"`
	IsArchived  bool             `gorm:"not null;default:false" json:"isArchived"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// State 提取生命周期规则需要的字段。
func (p Project) State() lifecycle.State {
	return lifecycle.State{
		Status:      p.Status,
		InvoiceSent: p.InvoiceSent,
		IsPaid:      p.IsPaid,
		Deadline:    p.Deadline,
	}
}

// Document 表示生成或手工录入的发票/合同。
type Document struct {
	ID        uint                   `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      lifecycle.DocumentKind `gorm:"size:16;not null" json:"type"`
	ProjectID *uint                  `gorm:"index" json:"projectId,omitempty"`
	Content   string                 `gorm:"type:text;not null" json:"content"`
	ObjectKey string                 `gorm:"size:512" json:"-"`
	CreatedAt time.Time              `gorm:"autoCreateTime" json:"createdAt"`
}

// Resume 表示简历（resume）或求职信（cover_letter）。
type Resume struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Type           string    `gorm:"size:32;not null" json:"type"`
	Content        string    `gorm:"type:text" json:"content"`
	ProjectID      *uint     `gorm:"index" json:"projectId,omitempty"`
	TargetPosition *string   `gorm:"size:255" json:"targetPosition,omitempty"`
	TargetCompany  *string   `gorm:"size:255" json:"targetCompany,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// ExternalData 是通过 webhook 接收的外部数据，Content 原样保存。
type ExternalData struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Source    string         `gorm:"size:128;not null;index" json:"source"`
	DataType  string         `gorm:"size:128;not null" json:"dataType"`
	Content   datatypes.JSON `json:"content"`
	Processed bool           `gorm:"not null;default:false" json:"processed"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// Models 返回需要迁移的全部模型。
func Models() []any {
	return []any{&Client{}, &Project{}, &Document{}, &Resume{}, &ExternalData{}}
}
