package slots

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dayPolicy = Policy{WorkStart: 480, WorkEnd: 1080, MinGapMinutes: 30, MaxOffersPerDay: 5}

// reversePerm returns n-1..0, so the highest interior candidates are picked.
type reversePerm struct{}

func (reversePerm) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = n - 1 - i
	}
	return out
}

func assertSpacing(t *testing.T, offers []int, gap int) {
	t.Helper()
	for i := 1; i < len(offers); i++ {
		assert.GreaterOrEqual(t, offers[i]-offers[i-1], gap, "offers %v too close at %d", offers, i)
	}
}

func TestCandidates_EmptyDay(t *testing.T) {
	policies := []Policy{
		dayPolicy,
		{WorkStart: 0, WorkEnd: 30, MinGapMinutes: 30, MaxOffersPerDay: 1},
		{WorkStart: 600, WorkEnd: 700, MinGapMinutes: 7, MaxOffersPerDay: 3},
		{WorkStart: 420, WorkEnd: 1200, MinGapMinutes: 45, MaxOffersPerDay: 10},
	}
	for _, p := range policies {
		got := Candidates(nil, p)
		require.NotEmpty(t, got)
		assert.Equal(t, p.WorkStart, got[0])
		assertSpacing(t, got, p.MinGapMinutes)
		for _, m := range got {
			assert.LessOrEqual(t, m+p.MinGapMinutes, p.WorkEnd)
		}
	}
}

func TestCandidates_FullyBooked(t *testing.T) {
	occupied := []Interval{{StartMinute: 400, DurationMinutes: 300}, {StartMinute: 700, DurationMinutes: 400}}
	assert.Empty(t, Candidates(occupied, dayPolicy))
	assert.Empty(t, Compute(occupied, dayPolicy, nil))
}

func TestCandidates_SkipsBusyWindow(t *testing.T) {
	got := Candidates([]Interval{{StartMinute: 540, DurationMinutes: 60}}, dayPolicy)

	want := []int{480, 510}
	for m := 600; m <= 1050; m += 30 {
		want = append(want, m)
	}
	assert.Equal(t, want, got)
}

func TestCandidates_GapTooShort(t *testing.T) {
	// 20 free minutes between 500 and 520 cannot host a 30 minute offer.
	occupied := []Interval{
		{StartMinute: 480, DurationMinutes: 20},
		{StartMinute: 520, DurationMinutes: 40},
	}
	got := Candidates(occupied, dayPolicy)
	require.NotEmpty(t, got)
	assert.Equal(t, 560, got[0])
}

func TestCandidates_IgnoresRowsOutsideWindow(t *testing.T) {
	occupied := []Interval{
		{StartMinute: 60, DurationMinutes: 60},
		{StartMinute: 1200, DurationMinutes: 30},
		{StartMinute: 470, DurationMinutes: 20}, // spills into the window until 490
		{StartMinute: 900, DurationMinutes: 0},
	}
	got := Candidates(occupied, dayPolicy)
	require.NotEmpty(t, got)
	assert.Equal(t, 490, got[0])
}

func TestCandidates_TruncatedTail(t *testing.T) {
	p := Policy{WorkStart: 480, WorkEnd: 560, MinGapMinutes: 30, MaxOffersPerDay: 10}

	assert.Equal(t, []int{480, 510}, Candidates(nil, p))

	p.AllowTruncatedTail = true
	assert.Equal(t, []int{480, 510, 540}, Candidates(nil, p))
}

func TestCandidates_InvalidPolicy(t *testing.T) {
	assert.Nil(t, Candidates(nil, Policy{WorkStart: 600, WorkEnd: 600, MinGapMinutes: 30}))
	assert.Nil(t, Candidates(nil, Policy{WorkStart: 480, WorkEnd: 1080, MinGapMinutes: 0}))
}

func TestCompute_CapKeepsExtremes(t *testing.T) {
	occupied := []Interval{{StartMinute: 540, DurationMinutes: 60}}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		got := Compute(occupied, dayPolicy, rng)
		require.Len(t, got, 5)
		assert.Equal(t, 480, got[0])
		assert.Equal(t, 1050, got[len(got)-1])
		assertSpacing(t, got, 30)
		for _, m := range got {
			assert.False(t, m >= 540 && m < 600, "offer %d inside busy window", m)
		}
	}
}

func TestCompute_DeterministicSampler(t *testing.T) {
	got := Compute(nil, dayPolicy, reversePerm{})
	// 20 candidates 480..1050; the three highest interior ones are picked.
	assert.Equal(t, []int{480, 960, 990, 1020, 1050}, got)
}

func TestCompute_NoDuplicates(t *testing.T) {
	p := dayPolicy
	p.MaxOffersPerDay = 19
	got := Compute(nil, p, rand.New(rand.NewSource(7)))

	require.Len(t, got, 19)
	seen := map[int]bool{}
	for _, m := range got {
		assert.False(t, seen[m], "duplicate offer %d", m)
		seen[m] = true
	}
}

func TestCompute_SmallCaps(t *testing.T) {
	p := dayPolicy

	p.MaxOffersPerDay = 2
	assert.Equal(t, []int{480, 1050}, Compute(nil, p, nil))

	p.MaxOffersPerDay = 1
	assert.Equal(t, []int{480}, Compute(nil, p, nil))

	p.MaxOffersPerDay = 0
	assert.Empty(t, Compute(nil, p, nil))
}

func TestCompute_UnderCapReturnsAll(t *testing.T) {
	p := Policy{WorkStart: 480, WorkEnd: 600, MinGapMinutes: 30, MaxOffersPerDay: 5}
	assert.Equal(t, []int{480, 510, 540, 570}, Compute(nil, p, reversePerm{}))
}
