package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/paytask/backend/internal/models"
)

const ctxRewardKey contextKey = "parsed_reward"

// RewardFromCtx returns the reward parsed by RewardCheck. ok is false when
// the request did not pass through RewardCheck.
func RewardFromCtx(ctx context.Context) (reward decimal.Decimal, ok bool) {
	reward, ok = ctx.Value(ctxRewardKey).(decimal.Decimal)
	return reward, ok
}

// WithReward returns a context carrying a checked reward.
func WithReward(ctx context.Context, reward decimal.Decimal) context.Context {
	return context.WithValue(ctx, ctxRewardKey, reward)
}

// RewardCheck rejects task postings early: the actor set by SessionAuth must
// be a client and the body's "reward" must be positive and, when maxReward is
// positive, at most maxReward. The body is restored for the handler.
func RewardCheck(maxReward decimal.Decimal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromCtx(r.Context())
			if actor == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if actor.Role != models.RoleClient {
				http.Error(w, `{"error":"only clients can post tasks"}`, http.StatusForbidden)
				return
			}

			bodyBytes, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			if !gjson.ValidBytes(bodyBytes) {
				http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
				return
			}
			field := gjson.GetBytes(bodyBytes, "reward")
			if !field.Exists() {
				http.Error(w, `{"error":"reward is required"}`, http.StatusBadRequest)
				return
			}
			reward, err := decimal.NewFromString(field.String())
			if err != nil {
				http.Error(w, `{"error":"reward must be a number"}`, http.StatusBadRequest)
				return
			}
			if !reward.IsPositive() {
				http.Error(w, `{"error":"reward must be > 0"}`, http.StatusBadRequest)
				return
			}
			if maxReward.IsPositive() && reward.GreaterThan(maxReward) {
				http.Error(w, fmt.Sprintf(`{"error":"reward %s exceeds per-task limit %s"}`, reward, maxReward), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithReward(r.Context(), reward)))
		})
	}
}
