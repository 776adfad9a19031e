package project

import (
	"strings"
	"time"
)

// DisplayDateLayout 固定区域的日期展示格式（UTC）
const DisplayDateLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DisplayDateLayout,
}

// FormatDate 将 epoch 毫秒格式化为展示用日期
func FormatDate(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(DisplayDateLayout)
}

// ParseDate 解析里程碑日期输入，返回 epoch 毫秒；不带时区的输入按 UTC 处理
func ParseDate(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}
