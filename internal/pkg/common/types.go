package common

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat 日期欄位的 JSON 格式（僅日期，無時間）
const DateFormat = "2006-01-02"

// Date 僅含日期的時間值，JSON 序列化為 YYYY-MM-DD
type Date struct {
	time.Time
}

// NewDate 以年月日建立 Date
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate 解析 YYYY-MM-DD 字串
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

// MarshalJSON 實現 json.Marshaler 介面
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateFormat) + `"`), nil
}

// UnmarshalJSON 實現 json.Unmarshaler 介面
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// 產品欄位缺漏時的預設值
const (
	UnknownProductName = "Unknown Product"
	UnknownBrand       = "Unknown Brand"
	UnknownValue       = "N/A"
)

// 提醒天數的固定選項
var ReminderDayPresets = []int{1, 2, 3, 5, 7, 10, 14}

// DefaultReminderDays 預設提醒天數
const DefaultReminderDays = 3

// ValidReminderDays 檢查提醒天數是否為固定選項之一
func ValidReminderDays(days int) bool {
	for _, preset := range ReminderDayPresets {
		if days == preset {
			return true
		}
	}
	return false
}

// Product 產品
// Barcode 與 AddedDate 建立後不可變；ExpiryDate 與 ReminderDays 由使用者在
// 加入庫存時填入，掃描階段（pending）為零值
type Product struct {
	Barcode      string                 `json:"barcode"`
	Name         string                 `json:"name"`
	Brand        string                 `json:"brand"`
	Quantity     string                 `json:"quantity"`
	Categories   string                 `json:"categories"`
	Image        string                 `json:"image,omitempty"`
	Nutriments   map[string]interface{} `json:"nutriments"`
	ExpiryDate   Date                   `json:"expiry_date,omitempty"`
	ReminderDays int                    `json:"reminder_days,omitempty"`
	AddedDate    time.Time              `json:"added_date,omitempty"`
}

// RecipeCandidate 食譜搜尋結果
// UsedIngredientCount + MissedIngredientCount 等於該食譜參與比對的食材數
type RecipeCandidate struct {
	ID                    int    `json:"id"`
	Title                 string `json:"title"`
	Image                 string `json:"image"`
	UsedIngredientCount   int    `json:"used_ingredient_count"`
	MissedIngredientCount int    `json:"missed_ingredient_count"`
}

// RecipeDetail 食譜詳細內容，只在使用者選取候選食譜後取得
// Summary 與 Instructions 為外部服務回傳的富文本，輸出前已做基本消毒
type RecipeDetail struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Image          string   `json:"image"`
	ReadyInMinutes int      `json:"ready_in_minutes"`
	Servings       int      `json:"servings"`
	Summary        string   `json:"summary"`
	Ingredients    []string `json:"ingredients"`
	Instructions   string   `json:"instructions"`
	SourceURL      string   `json:"source_url"`
}
