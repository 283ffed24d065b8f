package integrity

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DuplicatePurchaseWindow 同一顾客对同一活动的两次购买间隔小于该值视为疑似重复
const DuplicatePurchaseWindow = 10 * time.Minute

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ValidEmail 邮箱格式校验
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// InvalidEmailValidator 筛选出邮箱格式不合法的行
func InvalidEmailValidator(rows []Row) []Row {
	var invalid []Row
	for _, row := range rows {
		email := cast.ToString(row["customer_email"])
		if email == "" {
			continue
		}
		if !ValidEmail(email) {
			invalid = append(invalid, row)
		}
	}
	return invalid
}

// PurchaseWindowValidator 按 (邮箱, 活动) 分组，相邻两次购买间隔小于 window 时两行都标记
func PurchaseWindowValidator(window time.Duration) Validator {
	return func(rows []Row) []Row {
		type purchase struct {
			row Row
			at  time.Time
		}

		groups := make(map[string][]purchase)
		var order []string
		for _, row := range rows {
			at, err := cast.ToTimeE(row["purchase_date"])
			if err != nil {
				continue
			}
			key := strings.ToLower(cast.ToString(row["customer_email"])) + "|" + cast.ToString(row["event_id"])
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], purchase{row: row, at: at})
		}

		var flagged []Row
		for _, key := range order {
			group := groups[key]
			sort.SliceStable(group, func(i, j int) bool { return group[i].at.Before(group[j].at) })
			marked := make([]bool, len(group))
			for i := 1; i < len(group); i++ {
				if group[i].at.Sub(group[i-1].at) < window {
					marked[i-1] = true
					marked[i] = true
				}
			}
			for i, p := range group {
				if marked[i] {
					flagged = append(flagged, p.row)
				}
			}
		}
		return flagged
	}
}
