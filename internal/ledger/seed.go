package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/paytask/backend/internal/models"
)

// demoData is the marketplace a fresh install starts with.
type demoData struct {
	users    []*models.User
	tasks    []*models.Task
	ratings  []*models.Rating
	payments []*models.Payment
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

func strp(s string) *string { return &s }

func newDemoData() demoData {
	return demoData{
		users: []*models.User{
			{
				ID:             "1",
				Name:           "Sarah Chen",
				Email:          "sarah@example.com",
				Avatar:         "https://images.unsplash.com/photo-1494790108755-2616b612b786?w=150&h=150&fit=crop&crop=face",
				Role:           models.RoleClient,
				Reputation:     4.8,
				TotalTasks:     25,
				CompletedTasks: 23,
				JoinedAt:       ts("2024-01-15T00:00:00Z"),
			},
			{
				ID:             "2",
				Name:           "Alex Rodriguez",
				Email:          "alex@example.com",
				Avatar:         "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=150&h=150&fit=crop&crop=face",
				Role:           models.RoleWorker,
				Reputation:     4.9,
				TotalTasks:     47,
				CompletedTasks: 45,
				Earnings:       dec(2850),
				JoinedAt:       ts("2024-02-10T00:00:00Z"),
			},
			{
				ID:             "3",
				Name:           "Maya Patel",
				Email:          "maya@example.com",
				Avatar:         "https://images.unsplash.com/photo-1534528741775-53994a69daeb?w=150&h=150&fit=crop&crop=face",
				Role:           models.RoleWorker,
				Reputation:     4.7,
				TotalTasks:     31,
				CompletedTasks: 29,
				Earnings:       dec(1920),
				JoinedAt:       ts("2024-03-05T00:00:00Z"),
			},
		},
		tasks: []*models.Task{
			{
				ID:          "1",
				Title:       "Write product descriptions for e-commerce site",
				Description: "Need compelling product descriptions for 10 tech gadgets. Each description should be 100-150 words, SEO-optimized, and highlight key features and benefits.",
				Category:    "Writing",
				Reward:      decimal.NewFromInt(50),
				Deadline:    ts("2024-01-25T18:00:00Z"),
				Status:      models.TaskStatusPublished,
				ClientID:    "1",
				CreatedAt:   ts("2024-01-20T10:00:00Z"),
				Tags:        []string{"copywriting", "seo", "ecommerce"},
				Difficulty:  models.DifficultyMedium,
			},
			{
				ID:          "2",
				Title:       "Social media graphics design",
				Description: "Create 5 Instagram post graphics for a fitness brand. Modern, vibrant style with provided brand colors. Include motivational quotes and workout tips.",
				Category:    "Design",
				Reward:      decimal.NewFromInt(75),
				Deadline:    ts("2024-01-23T16:00:00Z"),
				Status:      models.TaskStatusInProgress,
				ClientID:    "1",
				WorkerID:    strp("2"),
				CreatedAt:   ts("2024-01-18T14:30:00Z"),
				Tags:        []string{"graphic design", "social media", "fitness"},
				Difficulty:  models.DifficultyMedium,
			},
			{
				ID:              "3",
				Title:           "Simple data entry task",
				Description:     "Transfer 200 customer contacts from PDF to Excel spreadsheet. Ensure accuracy and proper formatting.",
				Category:        "Data Entry",
				Reward:          decimal.NewFromInt(25),
				Deadline:        ts("2024-01-22T12:00:00Z"),
				Status:          models.TaskStatusSubmitted,
				ClientID:        "1",
				WorkerID:        strp("3"),
				CreatedAt:       ts("2024-01-19T09:00:00Z"),
				SubmittedAt:     func() *time.Time { t := ts("2024-01-21T15:30:00Z"); return &t }(),
				SubmissionNotes: strp("Completed all 200 entries. Double-checked for accuracy and applied consistent formatting."),
				Tags:            []string{"data entry", "excel", "admin"},
				Difficulty:      models.DifficultyEasy,
			},
			{
				ID:          "4",
				Title:       "Voice-over for explainer video",
				Description: "Record professional voice-over for 2-minute explainer video. Clear American accent, friendly tone. Script provided.",
				Category:    "Audio",
				Reward:      decimal.NewFromInt(100),
				Deadline:    ts("2024-01-28T20:00:00Z"),
				Status:      models.TaskStatusPublished,
				ClientID:    "1",
				CreatedAt:   ts("2024-01-21T11:15:00Z"),
				Tags:        []string{"voice over", "audio", "video"},
				Difficulty:  models.DifficultyMedium,
			},
		},
		ratings: []*models.Rating{
			{
				ID:         "1",
				TaskID:     "2",
				FromUserID: "1",
				ToUserID:   "2",
				Rating:     5,
				Comment:    "Excellent work! Graphics exceeded expectations.",
				CreatedAt:  ts("2024-01-20T16:30:00Z"),
			},
			{
				ID:         "2",
				TaskID:     "3",
				FromUserID: "3",
				ToUserID:   "1",
				Rating:     5,
				Comment:    "Great client, clear instructions and prompt payment.",
				CreatedAt:  ts("2024-01-21T17:00:00Z"),
			},
		},
		payments: []*models.Payment{
			{ID: "1", TaskID: "1", Amount: decimal.NewFromInt(50), Status: models.PaymentStatusEscrowed, Type: models.PaymentTypeDeposit, CreatedAt: ts("2024-01-20T10:05:00Z")},
			{ID: "2", TaskID: "2", Amount: decimal.NewFromInt(75), Status: models.PaymentStatusEscrowed, Type: models.PaymentTypeDeposit, CreatedAt: ts("2024-01-18T14:35:00Z")},
			{ID: "3", TaskID: "3", Amount: decimal.NewFromInt(25), Status: models.PaymentStatusReleased, Type: models.PaymentTypePayment, CreatedAt: ts("2024-01-21T16:00:00Z")},
		},
	}
}
