package userhandlers

import (
	"context"

	authdomain "github.com/Black-And-White-Club/flagboard/app/modules/auth/domain"
	userservice "github.com/Black-And-White-Club/flagboard/app/modules/user/application"
)

// FakeService is a programmable userservice.Service.
type FakeService struct {
	trace []string

	ScanFunc func(ctx context.Context) (userservice.ScanReport, error)
	FixFunc  func(ctx context.Context, caller *authdomain.Claims, confirm userservice.ConfirmFunc) (userservice.FixResult, error)
}

func (f *FakeService) Trace() []string {
	return f.trace
}

func (f *FakeService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeService) Scan(ctx context.Context) (userservice.ScanReport, error) {
	f.record("Scan")
	if f.ScanFunc != nil {
		return f.ScanFunc(ctx)
	}
	return userservice.ScanReport{}, nil
}

func (f *FakeService) Fix(ctx context.Context, caller *authdomain.Claims, confirm userservice.ConfirmFunc) (userservice.FixResult, error) {
	f.record("Fix")
	if f.FixFunc != nil {
		return f.FixFunc(ctx, caller, confirm)
	}
	return userservice.FixResult{Status: userservice.FixNothingToDo}, nil
}
