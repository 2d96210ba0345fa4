package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paytask/backend/internal/models"
)

// Browse sort orders.
const (
	SortNewest     = "newest"
	SortRewardHigh = "reward_high"
	SortRewardLow  = "reward_low"
	SortDeadline   = "deadline"
)

// BrowseFilter narrows the published tasks shown to workers. Zero values match everything.
type BrowseFilter struct {
	Query      string
	Category   string
	Difficulty string
	MinReward  *decimal.Decimal
	MaxReward  *decimal.Decimal
	Sort       string
}

// BrowseResult is the filtered task list plus the facets shown alongside it.
type BrowseResult struct {
	Tasks         []*models.Task  `json:"tasks"`
	Categories    []string        `json:"categories"`
	AverageReward decimal.Decimal `json:"average_reward"`
}

// Browse returns the published tasks matching f, sorted by f.Sort (newest first by default).
// Categories are collected from every task, in first-seen order.
func Browse(tasks []*models.Task, f BrowseFilter) BrowseResult {
	res := BrowseResult{Tasks: []*models.Task{}, Categories: categories(tasks), AverageReward: decimal.Zero}
	for _, t := range tasks {
		if t.Status != models.TaskStatusPublished {
			continue
		}
		if matches(t, f) {
			res.Tasks = append(res.Tasks, t)
		}
	}
	sortTasks(res.Tasks, f.Sort)

	if len(res.Tasks) > 0 {
		sum := decimal.Zero
		for _, t := range res.Tasks {
			sum = sum.Add(t.Reward)
		}
		res.AverageReward = sum.Div(decimal.NewFromInt(int64(len(res.Tasks)))).Round(0)
	}
	return res
}

func matches(t *models.Task, f BrowseFilter) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		found := strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q)
		for _, tag := range t.Tags {
			if found {
				break
			}
			found = strings.Contains(strings.ToLower(tag), q)
		}
		if !found {
			return false
		}
	}
	if f.Category != "" && f.Category != "all" && t.Category != f.Category {
		return false
	}
	if f.Difficulty != "" && f.Difficulty != "all" && t.Difficulty != f.Difficulty {
		return false
	}
	if f.MinReward != nil && t.Reward.LessThan(*f.MinReward) {
		return false
	}
	if f.MaxReward != nil && t.Reward.GreaterThan(*f.MaxReward) {
		return false
	}
	return true
}

func sortTasks(tasks []*models.Task, order string) {
	switch order {
	case SortRewardHigh:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Reward.GreaterThan(tasks[j].Reward)
		})
	case SortRewardLow:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Reward.LessThan(tasks[j].Reward)
		})
	case SortDeadline:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Deadline.Before(tasks[j].Deadline)
		})
	default:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		})
	}
}

func categories(tasks []*models.Task) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, t := range tasks {
		if t.Category == "" || seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		out = append(out, t.Category)
	}
	return out
}

// DashboardStats are the per-user counters shown on the dashboard.
type DashboardStats struct {
	Active        int             `json:"active"`
	Completed     int             `json:"completed"`
	PendingReview int             `json:"pending_review"`
	TotalValue    decimal.Decimal `json:"total_value"`
	SuccessRate   int             `json:"success_rate"`
}

// Dashboard summarizes the tasks a user posted (client) or works on (worker).
func Dashboard(tasks []*models.Task) DashboardStats {
	st := DashboardStats{TotalValue: decimal.Zero}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusPublished, models.TaskStatusInProgress:
			st.Active++
		case models.TaskStatusApproved:
			st.Completed++
		case models.TaskStatusSubmitted:
			st.PendingReview++
		}
		st.TotalValue = st.TotalValue.Add(t.Reward)
	}
	total := len(tasks)
	if total < 1 {
		total = 1
	}
	st.SuccessRate = int(decimal.NewFromInt(int64(st.Completed * 100)).Div(decimal.NewFromInt(int64(total))).Round(0).IntPart())
	return st
}
