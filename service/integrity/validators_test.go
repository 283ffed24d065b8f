package integrity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	valid := []string{"a@example.com", "first.last+tag@sub.example.co", "x_y%z@domain.io"}
	invalid := []string{"plainaddress", "missing@tld", "@example.com", "a@b.c", "space in@example.com"}

	for _, email := range valid {
		assert.True(t, ValidEmail(email), email)
	}
	for _, email := range invalid {
		assert.False(t, ValidEmail(email), email)
	}
}

func TestInvalidEmailValidator(t *testing.T) {
	rows := []Row{
		{"id": "1", "customer_email": "good@example.com"},
		{"id": "2", "customer_email": "bad-email"},
		{"id": "3", "customer_email": ""},
		{"id": "4", "customer_email": []byte("x")},
	}

	invalid := InvalidEmailValidator(rows)
	assert.Len(t, invalid, 2)
	assert.Equal(t, "2", invalid[0]["id"])
}

func TestPurchaseWindowValidator(t *testing.T) {
	base := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	validate := PurchaseWindowValidator(DuplicatePurchaseWindow)

	t.Run("3分钟内视为重复", func(t *testing.T) {
		rows := []Row{
			{"id": "a", "customer_email": "c@example.com", "event_id": "e1", "purchase_date": base},
			{"id": "b", "customer_email": "c@example.com", "event_id": "e1", "purchase_date": base.Add(3 * time.Minute)},
		}
		flagged := validate(rows)
		assert.Len(t, flagged, 2)
	})

	t.Run("20分钟不视为重复", func(t *testing.T) {
		rows := []Row{
			{"id": "a", "customer_email": "c@example.com", "event_id": "e1", "purchase_date": base},
			{"id": "b", "customer_email": "c@example.com", "event_id": "e1", "purchase_date": base.Add(20 * time.Minute)},
		}
		assert.Empty(t, validate(rows))
	})

	t.Run("不同活动不合并", func(t *testing.T) {
		rows := []Row{
			{"id": "a", "customer_email": "c@example.com", "event_id": "e1", "purchase_date": base},
			{"id": "b", "customer_email": "c@example.com", "event_id": "e2", "purchase_date": base.Add(time.Minute)},
		}
		assert.Empty(t, validate(rows))
	})

	t.Run("字符串时间", func(t *testing.T) {
		rows := []Row{
			{"id": "a", "customer_email": "c@example.com", "event_id": "e1", "purchase_date": "2026-03-01T19:00:00Z"},
			{"id": "b", "customer_email": "c@example.com", "event_id": "e1", "purchase_date": "2026-03-01T19:05:00Z"},
			{"id": "c", "customer_email": "c@example.com", "event_id": "e1", "purchase_date": "2026-03-01T21:00:00Z"},
		}
		flagged := validate(rows)
		assert.Len(t, flagged, 2)
		assert.Equal(t, "a", flagged[0]["id"])
		assert.Equal(t, "b", flagged[1]["id"])
	})
}
