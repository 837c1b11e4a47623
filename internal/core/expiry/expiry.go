package expiry

import (
	"fmt"
	"math"
	"sort"
	"time"

	"fridge-keeper/internal/pkg/common"
)

// Level 緊急程度，數值越小越緊急
type Level int

const (
	LevelExpired Level = iota
	LevelToday
	LevelTomorrow
	LevelCritical
	LevelWarning
	LevelCaution
	LevelSafe
)

// String 實現 fmt.Stringer 介面
func (l Level) String() string {
	switch l {
	case LevelExpired:
		return "expired"
	case LevelToday:
		return "today"
	case LevelTomorrow:
		return "tomorrow"
	case LevelCritical:
		return "critical"
	case LevelWarning:
		return "warning"
	case LevelCaution:
		return "caution"
	case LevelSafe:
		return "safe"
	}
	return "unknown"
}

// UrgencyBand 到期緊急程度，純粹由剩餘天數推導，不做持久化
type UrgencyBand struct {
	Level Level  `json:"-"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Text  string `json:"text"`
}

// DaysUntilExpiry 計算距離到期日的天數
// now 截斷到當日零點後取差值天花板，未過完的一天一律往未來進位
func DaysUntilExpiry(expiryDate common.Date, now time.Time) int {
	nowDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	diff := expiryDate.Time.Sub(nowDate)
	return int(math.Ceil(diff.Hours() / 24))
}

// Classify 將剩餘天數對應到固定的七個緊急程度之一
// 門檻按由緊急到安全的固定順序比對，第一個符合者為結果
func Classify(days int) UrgencyBand {
	switch {
	case days < 0:
		text := fmt.Sprintf("Expired %d days ago", -days)
		if days == -1 {
			text = "Expired 1 day ago"
		}
		return UrgencyBand{Level: LevelExpired, Name: "expired", Color: "badge-danger", Icon: "💀", Text: text}
	case days == 0:
		return UrgencyBand{Level: LevelToday, Name: "today", Color: "badge-danger", Icon: "⚠️", Text: "Expires today!"}
	case days == 1:
		return UrgencyBand{Level: LevelTomorrow, Name: "tomorrow", Color: "badge-danger", Icon: "⚠️", Text: "Expires tomorrow"}
	case days <= 2:
		return UrgencyBand{Level: LevelCritical, Name: "critical", Color: "badge-danger", Icon: "🔴", Text: fmt.Sprintf("%d days left", days)}
	case days <= 5:
		return UrgencyBand{Level: LevelWarning, Name: "warning", Color: "badge-warning", Icon: "🟠", Text: fmt.Sprintf("%d days left", days)}
	case days <= 10:
		return UrgencyBand{Level: LevelCaution, Name: "caution", Color: "badge-warning", Icon: "🟡", Text: fmt.Sprintf("%d days left", days)}
	default:
		return UrgencyBand{Level: LevelSafe, Name: "safe", Color: "badge-success", Icon: "🟢", Text: fmt.Sprintf("%d days left", days)}
	}
}

// SortByExpiry 依到期日由近到遠穩定排序，不修改輸入切片
func SortByExpiry(products []common.Product) []common.Product {
	sorted := make([]common.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExpiryDate.Time.Before(sorted[j].ExpiryDate.Time)
	})
	return sorted
}

// FilterExpiringWithin 回傳剩餘天數不超過 window 的產品，保留輸入順序
func FilterExpiringWithin(products []common.Product, window int, now time.Time) []common.Product {
	var filtered []common.Product
	for _, p := range products {
		if DaysUntilExpiry(p.ExpiryDate, now) <= window {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
