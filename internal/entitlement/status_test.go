package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/speakly/billing-engine/internal/models"
)

func TestResolve(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	trialDays := 3

	future := createdAt.Add(40 * 24 * time.Hour)
	past := createdAt.Add(-time.Hour)

	tests := []struct {
		name string
		user models.User
		now  time.Time
		want Status
	}{
		{
			name: "new user is on trial",
			user: models.User{CreatedAt: createdAt},
			now:  createdAt.Add(time.Hour),
			want: StatusTrial,
		},
		{
			name: "trial lasts two days in",
			user: models.User{CreatedAt: createdAt},
			now:  createdAt.Add(2 * 24 * time.Hour),
			want: StatusTrial,
		},
		{
			name: "free after trial window",
			user: models.User{CreatedAt: createdAt},
			now:  createdAt.Add(4 * 24 * time.Hour),
			want: StatusFree,
		},
		{
			name: "trial boundary resolves to free",
			user: models.User{CreatedAt: createdAt},
			now:  createdAt.Add(3 * 24 * time.Hour),
			want: StatusFree,
		},
		{
			name: "active premium",
			user: models.User{CreatedAt: createdAt, PremiumUntil: &future},
			now:  createdAt.Add(time.Hour),
			want: StatusPremium,
		},
		{
			name: "premium boundary resolves to lower tier",
			user: models.User{CreatedAt: createdAt, PremiumUntil: &future},
			now:  future,
			want: StatusFree,
		},
		{
			name: "expired premium falls back to trial while trial lasts",
			user: models.User{CreatedAt: createdAt, PremiumUntil: &past},
			now:  createdAt.Add(time.Hour),
			want: StatusTrial,
		},
		{
			name: "premium expired a second ago, trial long gone",
			user: models.User{CreatedAt: createdAt, PremiumUntil: &future},
			now:  future.Add(time.Second),
			want: StatusFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(&tt.user, tt.now, trialDays)
			assert.Equal(t, tt.want, got)
		})
	}
}
