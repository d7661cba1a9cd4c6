package channel

import (
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTelegram_VoiceTurnTrackingIsConcurrencySafe(t *testing.T) {
	ch := NewTelegram(TelegramConfig{Token: "x", Logger: testLogger()})

	// The polling goroutine records voice turns while the outbound
	// handler reads them; hammer both sides concurrently.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				ch.setVoiceTurn(42, j%2 == 0)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				ch.wasVoiceTurn(42)
			}
		}()
	}
	wg.Wait()

	assert.False(t, ch.wasVoiceTurn(7), "unknown chats default to text replies")
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "short title", truncateTitle("short title", telegramMaxOptionLen))

	long := strings.Repeat("ab", telegramMaxOptionLen)
	assert.Equal(t, long[:telegramMaxOptionLen], truncateTitle(long, telegramMaxOptionLen))

	// Multi-byte titles are cut on runes, never mid-sequence.
	jp := strings.Repeat("日", 40)
	got := truncateTitle(jp, telegramMaxOptionLen)
	assert.Equal(t, strings.Repeat("日", telegramMaxOptionLen), got)
	assert.True(t, utf8.ValidString(got))
}
