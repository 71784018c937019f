package logic

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	dateLayout,
}

// ParseTime 解析时间，无时区的时间按 loc 解释，只给日期时取当日零点
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, validationf("时间不能为空")
	}
	if loc == nil {
		loc = time.Local
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, validationf("无效的时间: %s", s)
}

// ParseSettlementTime 解析结算时间（或查询截止时间），只给日期时取当日 23:59:59
func ParseSettlementTime(s string, loc *time.Location) (time.Time, error) {
	t, err := ParseTime(s, loc)
	if err != nil {
		return time.Time{}, err
	}
	if _, dateErr := time.Parse(dateLayout, strings.TrimSpace(s)); dateErr == nil {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// LoadLocation 加载时区，失败时退回本地时区
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}
