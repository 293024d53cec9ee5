package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	domainValuation "github.com/keyquest/wa-gateway/domains/valuation"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memValuationRepo struct {
	mu   sync.Mutex
	rows map[string]*domainValuation.Request
}

func newMemValuationRepo() *memValuationRepo {
	return &memValuationRepo{rows: make(map[string]*domainValuation.Request)}
}

func (r *memValuationRepo) Create(_ context.Context, v *domainValuation.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.rows[v.ID] = &cp
	return nil
}

func (r *memValuationRepo) GetByID(_ context.Context, id string) (*domainValuation.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.rows[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

func (r *memValuationRepo) GetByForwardMessageID(_ context.Context, _, _ string) (*domainValuation.Request, error) {
	return nil, nil
}

func (r *memValuationRepo) List(_ context.Context, status string, _ int) ([]domainValuation.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domainValuation.Request
	for _, v := range r.rows {
		if status == "" || v.Status == status {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *memValuationRepo) Update(_ context.Context, v *domainValuation.Request) error {
	return r.Create(context.Background(), v)
}

func (r *memValuationRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func TestValuationCreateNormalizesAgentNumber(t *testing.T) {
	repo := newMemValuationRepo()
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	service := NewValuationService(repo, clk)

	v, err := service.Create(context.Background(), domainValuation.CreateRequest{
		Address:     "Blk 123 Ang Mo Kio Ave 4",
		Size:        "1200 sqft",
		Asking:      "$500,000",
		AgentNumber: "9123 4567",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, domainValuation.StatusPending, v.Status)
	assert.Equal(t, "9123 4567", v.AgentNumberRaw)
	assert.Equal(t, "6591234567", v.AgentPhoneE164)
	assert.Equal(t, "6591234567@c.us", v.AgentWhatsappID)
	assert.Equal(t, clk.Now().UTC(), v.CreatedAt)

	stored, err := service.Get(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.Address, stored.Address)
}

func TestValuationCreateRequiresAddress(t *testing.T) {
	service := NewValuationService(newMemValuationRepo(), clock.NewFakeClock(time.Now()))
	_, err := service.Create(context.Background(), domainValuation.CreateRequest{Size: "900 sqft"})
	assert.Error(t, err)
}

func TestValuationUpdatePatchesAndCompletes(t *testing.T) {
	repo := newMemValuationRepo()
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	service := NewValuationService(repo, clk)

	v, err := service.Create(context.Background(), domainValuation.CreateRequest{Address: "12 Marine Parade"})
	require.NoError(t, err)

	status := domainValuation.StatusCompleted
	reply := "Estimated $480k to $520k"
	updated, err := service.Update(context.Background(), domainValuation.UpdateRequest{
		ID:              v.ID,
		Status:          &status,
		BankerReplyText: &reply,
	})
	require.NoError(t, err)
	assert.Equal(t, domainValuation.StatusCompleted, updated.Status)
	assert.Equal(t, reply, updated.BankerReplyText)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, "12 Marine Parade", updated.Address)
}

func TestValuationUpdateRejectsUnknownStatus(t *testing.T) {
	repo := newMemValuationRepo()
	clk := clock.NewFakeClock(time.Now())
	service := NewValuationService(repo, clk)

	v, err := service.Create(context.Background(), domainValuation.CreateRequest{Address: "12 Marine Parade"})
	require.NoError(t, err)

	bogus := "archived"
	_, err = service.Update(context.Background(), domainValuation.UpdateRequest{ID: v.ID, Status: &bogus})
	assert.Error(t, err)
}
