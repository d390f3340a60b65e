package usecase

import (
	"context"
	"testing"

	"jobboard-billing/internal/domain/model"
)

func TestComputeShare(t *testing.T) {
	cases := []struct {
		total, heart, platform int64
	}{
		{0, 0, 0},
		{100, 20, 80},
		{5000, 1000, 4000},
		{99, 19, 80},   // floor on the partner side
		{1, 0, 1},
		{20001, 4000, 16001},
	}
	for _, c := range cases {
		heart, platform := ComputeShare(c.total)
		if heart != c.heart || platform != c.platform {
			t.Errorf("ComputeShare(%d) = %d/%d, want %d/%d", c.total, heart, platform, c.heart, c.platform)
		}
		if heart+platform != c.total {
			t.Errorf("ComputeShare(%d): parts sum to %d", c.total, heart+platform)
		}
	}
}

func TestShouldShare(t *testing.T) {
	for _, typ := range []model.PaymentType{
		model.PaymentTypeJobPosting, model.PaymentTypeFeaturedListing,
		model.PaymentTypePremiumListing, model.PaymentTypeSubscription,
	} {
		if !ShouldShare(typ) {
			t.Errorf("ShouldShare(%s) = false", typ)
		}
	}
	if ShouldShare("TIP") {
		t.Error("ShouldShare accepted an unknown type")
	}
	if directShare(model.PaymentTypeSubscription) {
		t.Error("subscription payments must share per invoice, not directly")
	}
	if !directShare(model.PaymentTypeJobPosting) {
		t.Error("job posting payments share directly")
	}
}

func TestRecordShare(t *testing.T) {
	ctx := context.Background()
	repo := newMemRevenueShareRepo()
	uc := NewRevenueShareUseCase(repo, testLogger())

	created, err := uc.RecordShare(ctx, nil, "pay-1", 5000)
	if err != nil {
		t.Fatalf("RecordShare: %v", err)
	}
	if !created {
		t.Fatal("first record reported as duplicate")
	}

	rs, err := repo.FindBySourceKey(ctx, nil, "pay-1")
	if err != nil {
		t.Fatalf("share row missing: %v", err)
	}
	if rs.TotalAmount != 5000 || rs.HeartShare != 1000 || rs.PlatformShare != 4000 {
		t.Fatalf("share = %+v", rs)
	}
	if rs.ReportingMonth == "" {
		t.Fatal("reporting month empty")
	}

	created, err = uc.RecordShare(ctx, nil, "pay-1", 5000)
	if err != nil {
		t.Fatalf("duplicate RecordShare: %v", err)
	}
	if created {
		t.Fatal("duplicate source key created a second row")
	}
	if len(repo.byKey) != 1 {
		t.Fatalf("rows = %d, want 1", len(repo.byKey))
	}
}
