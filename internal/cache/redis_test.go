package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotKey_CanonicalizesOffset(t *testing.T) {
	utc := time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC)
	plusThree := utc.In(time.FixedZone("TRT", 3*60*60))

	// The same instant must map to one key no matter which offset the
	// client's timestamp carried.
	assert.Equal(t, slotKey(1, utc), slotKey(1, plusThree))
	assert.Equal(t, markerKey(1, utc), markerKey(1, plusThree))

	want := fmt.Sprintf("slot:1:%s", utc.In(time.Local).Format(time.RFC3339))
	assert.Equal(t, want, slotKey(1, utc))
}

func TestSlotKey_PrefixMatchesLocalDate(t *testing.T) {
	local := time.Date(2026, 9, 1, 19, 0, 0, 0, time.Local)
	date := local.Format("2006-01-02")

	prefix := fmt.Sprintf("slot:%d:%s", int64(1), date)
	assert.Contains(t, slotKey(1, local), prefix)
	assert.Contains(t, slotKey(1, local.UTC()), prefix)
}

func TestAvailabilityKey(t *testing.T) {
	assert.Equal(t, "availability:1:2026-09-01", availabilityKey(1, "2026-09-01"))
}
