package appointment

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestInsertError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name      string
		err       error
		wantTaken bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "appointments_active_slot_uq"}, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"not null violation", &pgconn.PgError{Code: "23502"}, false},
		{"plain error", other, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := insertError(tt.err)
			if tt.wantTaken {
				assert.ErrorIs(t, got, ErrSlotTaken)
				return
			}
			assert.NotErrorIs(t, got, ErrSlotTaken)
			assert.Equal(t, tt.err, got)
		})
	}
}

func TestStatusLabels(t *testing.T) {
	r := &PgRepository{opts: PgOptions{Area: "practice", CreatedStatus: "1", CancelledStatus: "9"}}

	assert.Equal(t, "1", r.labelFor(StatusScheduled))
	assert.Equal(t, "9", r.labelFor(StatusCancelled))

	tests := []struct {
		label string
		want  Status
	}{
		{"1", StatusScheduled},
		{"9", StatusCancelled},
		{"4", StatusScheduled}, // written by the practice software
		{"", StatusScheduled},
		{"cancelled", StatusScheduled},
	}
	for _, tt := range tests {
		t.Run("label "+tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, r.statusFromLabel(tt.label))
		})
	}

	for _, s := range []Status{StatusScheduled, StatusCancelled} {
		assert.Equal(t, s, r.statusFromLabel(r.labelFor(s)))
	}
}
