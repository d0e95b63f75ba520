package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openforum/chatsync/internal/domain"
	"github.com/openforum/chatsync/internal/domain/domaintest"
)

func TestRealClock(t *testing.T) {
	before := time.Now()
	got := domain.RealClock{}.Now()
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestNowUTCMillis(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	clock := domaintest.NewFakeClock(at)

	assert.Equal(t, at.UnixMilli(), domain.NowUTCMillis(clock))
}

func TestFromMillis(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	got := domain.FromMillis(at.UnixMilli())

	assert.True(t, got.Equal(at))
	assert.Equal(t, time.UTC, got.Location())
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := domaintest.NewFakeClock(start)

	clock.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), clock.Now())

	clock.Set(start)
	assert.Equal(t, start, clock.Now())
}
