package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubepost/internal/types"
)

type upgradeCall struct {
	id      string
	plan    types.Plan
	credits int
}

type fakePlanStore struct {
	calls []upgradeCall
	err   error
}

func (f *fakePlanStore) UpgradePlan(_ context.Context, id string, plan types.Plan, credits int) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, upgradeCall{id, plan, credits})
	return nil
}

type countingRecorder struct {
	upgrades []string
}

func (c *countingRecorder) RecordAction(string)                  {}
func (c *countingRecorder) RecordRejection(string, string)       {}
func (c *countingRecorder) RecordConnect(string)                 {}
func (c *countingRecorder) RecordUpgrade(s string)               { c.upgrades = append(c.upgrades, s) }
func (c *countingRecorder) RecordExternalFailure(string, string) {}
func (c *countingRecorder) RecordCacheHit(bool)                  {}

func TestUpgradeToPro(t *testing.T) {
	store := &fakePlanStore{}
	rec := &countingRecorder{}
	u := NewUpgrader(store, types.UnlimitedCredits, nil, rec)

	require.NoError(t, u.UpgradeToPro(context.Background(), "uid-1", SourcePaymentWebhook))
	require.NoError(t, u.UpgradeToPro(context.Background(), "uid-1", SourcePaymentWebhook))

	assert.Equal(t, []upgradeCall{
		{"uid-1", types.PlanPro, types.UnlimitedCredits},
		{"uid-1", types.PlanPro, types.UnlimitedCredits},
	}, store.calls)
	assert.Equal(t, []string{SourcePaymentWebhook, SourcePaymentWebhook}, rec.upgrades)
}

func TestUpgradeToPro_UnknownUser(t *testing.T) {
	store := &fakePlanStore{err: types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)}
	rec := &countingRecorder{}
	u := NewUpgrader(store, 0, nil, rec)

	err := u.UpgradeToPro(context.Background(), "ghost", SourceStripe)
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundUser))
	assert.Empty(t, rec.upgrades)
}

func TestUpgradeToPro_EmptyUser(t *testing.T) {
	u := NewUpgrader(&fakePlanStore{}, 0, nil, nil)
	err := u.UpgradeToPro(context.Background(), "", SourceStripe)
	assert.True(t, types.HasCode(err, types.ErrCodeValidationMissingField))
}
