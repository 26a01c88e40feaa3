package db

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct {
	err         error
	hadDeadline bool
}

func (p *fakePinger) Ping(ctx context.Context) error {
	_, p.hadDeadline = ctx.Deadline()
	return p.err
}

func TestCheck_Healthy(t *testing.T) {
	p := &fakePinger{}
	if err := Check(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.hadDeadline {
		t.Error("expected ping to run with a deadline")
	}
}

func TestCheck_PropagatesPingError(t *testing.T) {
	want := errors.New("connection refused")
	if err := Check(context.Background(), &fakePinger{err: want}); !errors.Is(err, want) {
		t.Errorf("expected ping error, got %v", err)
	}
}

func TestCheck_NilPinger(t *testing.T) {
	if err := Check(context.Background(), nil); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("expected ErrNoDatabase, got %v", err)
	}
}

func TestTxFromContext_Empty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected no transaction, got %v", tx)
	}
}
