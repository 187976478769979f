package core

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDirectory implements Directory for testing.
type mockDirectory struct {
	ids  map[string]bool
	fail map[string]error
}

func (m *mockDirectory) Exists(_ context.Context, id string) (bool, error) {
	if err, ok := m.fail[id]; ok {
		return false, err
	}
	return m.ids[id], nil
}

func newMockDirectory(ids ...string) *mockDirectory {
	m := &mockDirectory{ids: make(map[string]bool), fail: make(map[string]error)}
	for _, id := range ids {
		m.ids[id] = true
	}
	return m
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func equalInputs(ids ...string) []ParticipantInput {
	out := make([]ParticipantInput, len(ids))
	for i, id := range ids {
		out[i] = ParticipantInput{UserID: id}
	}
	return out
}

func sumOf(allocs []Allocation) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range allocs {
		sum = sum.Add(a.Amount)
	}
	return sum
}

var ctx = context.Background()

func TestAllocateEqual_EvenDivision(t *testing.T) {
	dir := newMockDirectory("u1", "u2", "u3")
	allocs, err := Allocate(ctx, dec("3000.00"), SplitEqual, equalInputs("u1", "u2", "u3"), dir)
	require.NoError(t, err)
	require.Len(t, allocs, 3)
	for _, a := range allocs {
		assert.True(t, a.Amount.Equal(dec("1000.00")), "share %s", a.Amount)
		assert.Nil(t, a.Percentage)
	}
}

func TestAllocateEqual_RemainderCents(t *testing.T) {
	dir := newMockDirectory("u1", "u2", "u3")
	allocs, err := Allocate(ctx, dec("1000.00"), SplitEqual, equalInputs("u1", "u2", "u3"), dir)
	require.NoError(t, err)

	// 100000 cents / 3 = 33333 rem 1; the first participant takes the extra cent.
	assert.True(t, allocs[0].Amount.Equal(dec("333.34")))
	assert.True(t, allocs[1].Amount.Equal(dec("333.33")))
	assert.True(t, allocs[2].Amount.Equal(dec("333.33")))
	assert.True(t, sumOf(allocs).Equal(dec("1000.00")), "sum %s", sumOf(allocs))
}

func TestAllocateEqual_SumInvariantHolds(t *testing.T) {
	totals := []string{"0.01", "0.10", "1.00", "99.99", "1000.00", "12345.67"}
	for n := 1; n <= 7; n++ {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}
		dir := newMockDirectory(ids...)
		for _, total := range totals {
			allocs, err := Allocate(ctx, dec(total), SplitEqual, equalInputs(ids...), dir)
			require.NoError(t, err)
			assert.True(t, sumOf(allocs).Equal(dec(total)),
				"total=%s n=%d sum=%s", total, n, sumOf(allocs))
		}
	}
}

func TestAllocateExact_Match(t *testing.T) {
	dir := newMockDirectory("u1", "u2")
	participants := []ParticipantInput{
		{UserID: "u1", Amount: decp("1500.00")},
		{UserID: "u2", Amount: decp("2500.00")},
	}
	allocs, err := Allocate(ctx, dec("4000.00"), SplitExact, participants, dir)
	require.NoError(t, err)
	assert.True(t, allocs[0].Amount.Equal(dec("1500.00")))
	assert.True(t, allocs[1].Amount.Equal(dec("2500.00")))
}

func TestAllocateExact_Mismatch(t *testing.T) {
	dir := newMockDirectory("u1", "u2")
	participants := []ParticipantInput{
		{UserID: "u1", Amount: decp("1400.00")},
		{UserID: "u2", Amount: decp("2500.00")},
	}
	_, err := Allocate(ctx, dec("4000.00"), SplitExact, participants, dir)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, AmountMismatch, verr.Kind)
	assert.True(t, verr.Expected.Equal(dec("4000.00")))
	assert.True(t, verr.Actual.Equal(dec("3900.00")))
}

func TestAllocatePercentage_Match(t *testing.T) {
	dir := newMockDirectory("u1", "u2")
	participants := []ParticipantInput{
		{UserID: "u1", Percentage: decp("40")},
		{UserID: "u2", Percentage: decp("60")},
	}
	allocs, err := Allocate(ctx, dec("5000.00"), SplitPercentage, participants, dir)
	require.NoError(t, err)
	assert.True(t, allocs[0].Amount.Equal(dec("2000.00")))
	assert.True(t, allocs[1].Amount.Equal(dec("3000.00")))
	require.NotNil(t, allocs[0].Percentage)
	assert.True(t, allocs[0].Percentage.Equal(dec("40")))
}

func TestAllocatePercentage_Mismatch(t *testing.T) {
	dir := newMockDirectory("u1", "u2")
	participants := []ParticipantInput{
		{UserID: "u1", Percentage: decp("30")},
		{UserID: "u2", Percentage: decp("60")},
	}
	_, err := Allocate(ctx, dec("5000.00"), SplitPercentage, participants, dir)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, PercentageMismatch, verr.Kind)
	assert.True(t, verr.Actual.Equal(dec("90")))
}

func TestAllocatePercentage_SubCentQuantization(t *testing.T) {
	dir := newMockDirectory("u1", "u2", "u3")
	participants := []ParticipantInput{
		{UserID: "u1", Percentage: decp("33.33")},
		{UserID: "u2", Percentage: decp("33.33")},
		{UserID: "u3", Percentage: decp("33.34")},
	}
	allocs, err := Allocate(ctx, dec("0.50"), SplitPercentage, participants, dir)
	require.NoError(t, err)
	assert.True(t, sumOf(allocs).Equal(dec("0.50")), "sum %s", sumOf(allocs))
	for _, a := range allocs {
		require.NoError(t, ValidateAmount(a.Amount))
	}
}

func TestAllocate_UnknownParticipant(t *testing.T) {
	dir := newMockDirectory("u1", "u3")
	_, err := Allocate(ctx, dec("90.00"), SplitEqual, equalInputs("u1", "u2", "u3"), dir)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, InvalidParticipant, verr.Kind)
	assert.Equal(t, "u2", verr.UserID)
}

func TestAllocate_FirstUnknownWins(t *testing.T) {
	dir := newMockDirectory("u1")
	_, err := Allocate(ctx, dec("90.00"), SplitEqual, equalInputs("u1", "ghost-a", "ghost-b"), dir)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ghost-a", verr.UserID)
}

func TestAllocate_DirectoryErrorIsInvalidParticipant(t *testing.T) {
	dir := newMockDirectory("u1", "u2")
	dir.fail["u2"] = errors.New("lookup timed out")
	_, err := Allocate(ctx, dec("90.00"), SplitEqual, equalInputs("u1", "u2"), dir)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, InvalidParticipant, verr.Kind)
	assert.Equal(t, "u2", verr.UserID)
}

func TestAllocate_OrderMirrorsInput(t *testing.T) {
	dir := newMockDirectory("c", "a", "b")
	allocs, err := Allocate(ctx, dec("30.00"), SplitEqual, equalInputs("c", "a", "b"), dir)
	require.NoError(t, err)
	assert.Equal(t, "c", allocs[0].UserID)
	assert.Equal(t, "a", allocs[1].UserID)
	assert.Equal(t, "b", allocs[2].UserID)
}

func TestAllocate_NoParticipants(t *testing.T) {
	dir := newMockDirectory()
	_, err := Allocate(ctx, dec("10.00"), SplitEqual, nil, dir)
	assert.ErrorIs(t, err, ErrNoParticipants)
}
